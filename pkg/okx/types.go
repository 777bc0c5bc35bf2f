package okx

// QuoteResp /quote 响应
type QuoteResp struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data []QuoteData `json:"data"`
}

type QuoteData struct {
	ChainID       string     `json:"chainId"`
	FromToken     TokenInfo  `json:"fromToken"`
	ToToken       TokenInfo  `json:"toToken"`
	FromAmount    string     `json:"fromTokenAmount"`
	ToAmount      string     `json:"toTokenAmount"`
	EstimateGas   string     `json:"estimateGasFee"`
	DexRouterList []DexRoute `json:"dexRouterList"`
}

type TokenInfo struct {
	TokenContractAddress string `json:"tokenContractAddress"`
	TokenSymbol          string `json:"tokenSymbol"`
	Decimal              string `json:"decimal"`
}

type DexRoute struct {
	Router        string `json:"router"`
	RouterPercent string `json:"routerPercent"`
}

// SwapResp /swap 响应
type SwapResp struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data []SwapData `json:"data"`
}

type SwapData struct {
	RouterResult QuoteData `json:"routerResult"`
	Tx           TxData    `json:"tx"`
}

// TxData 聚合器返回的未签名交易
type TxData struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

// Quote 对外返回的报价结果
type Quote struct {
	FromToken string
	ToToken   string
	AmountIn  string
	AmountOut string
	Route     []DexRoute
}

// SwapParams 执行兑换的参数
type SwapParams struct {
	ChainID   uint64
	FromToken string
	ToToken   string
	Amount    string
	Slippage  string
	Wallet    string
}

// SwapResult 兑换执行结果
type SwapResult struct {
	TxID      string
	Status    string
	AmountOut string
	GasUsed   string
}
