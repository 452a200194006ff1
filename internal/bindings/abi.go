package bindings

import "github.com/ethereum/go-ethereum/accounts/abi/bind"

// ERC20MetaData covers the ERC-20 surface shared by OCEAN, datatokens and pool shares.
var ERC20MetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`,
}

// PoolMetaData is the weighted pool (BPool) surface used by Ocean datatoken pools.
var PoolMetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"getBalance","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getSwapFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getSpotPrice","stateMutability":"view","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"}],"outputs":[{"name":"spotPrice","type":"uint256"}]},
{"type":"function","name":"getSpotPriceSansFee","stateMutability":"view","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"}],"outputs":[{"name":"spotPrice","type":"uint256"}]},
{"type":"function","name":"getNormalizedWeight","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getDenormalizedWeight","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getTotalDenormalizedWeight","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getCurrentTokens","stateMutability":"view","inputs":[],"outputs":[{"name":"tokens","type":"address[]"}]},
{"type":"function","name":"getFinalTokens","stateMutability":"view","inputs":[],"outputs":[{"name":"tokens","type":"address[]"}]},
{"type":"function","name":"isFinalized","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"isBound","stateMutability":"view","inputs":[{"name":"t","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"getNumTokens","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getController","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"calcOutGivenIn","stateMutability":"pure","inputs":[{"name":"tokenBalanceIn","type":"uint256"},{"name":"tokenWeightIn","type":"uint256"},{"name":"tokenBalanceOut","type":"uint256"},{"name":"tokenWeightOut","type":"uint256"},{"name":"tokenAmountIn","type":"uint256"},{"name":"swapFee","type":"uint256"}],"outputs":[{"name":"tokenAmountOut","type":"uint256"}]},
{"type":"function","name":"calcInGivenOut","stateMutability":"pure","inputs":[{"name":"tokenBalanceIn","type":"uint256"},{"name":"tokenWeightIn","type":"uint256"},{"name":"tokenBalanceOut","type":"uint256"},{"name":"tokenWeightOut","type":"uint256"},{"name":"tokenAmountOut","type":"uint256"},{"name":"swapFee","type":"uint256"}],"outputs":[{"name":"tokenAmountIn","type":"uint256"}]},
{"type":"function","name":"calcPoolOutGivenSingleIn","stateMutability":"pure","inputs":[{"name":"tokenBalanceIn","type":"uint256"},{"name":"tokenWeightIn","type":"uint256"},{"name":"poolSupply","type":"uint256"},{"name":"totalWeight","type":"uint256"},{"name":"tokenAmountIn","type":"uint256"},{"name":"swapFee","type":"uint256"}],"outputs":[{"name":"poolAmountOut","type":"uint256"}]},
{"type":"function","name":"calcSingleInGivenPoolOut","stateMutability":"pure","inputs":[{"name":"tokenBalanceIn","type":"uint256"},{"name":"tokenWeightIn","type":"uint256"},{"name":"poolSupply","type":"uint256"},{"name":"totalWeight","type":"uint256"},{"name":"poolAmountOut","type":"uint256"},{"name":"swapFee","type":"uint256"}],"outputs":[{"name":"tokenAmountIn","type":"uint256"}]},
{"type":"function","name":"calcSingleOutGivenPoolIn","stateMutability":"pure","inputs":[{"name":"tokenBalanceOut","type":"uint256"},{"name":"tokenWeightOut","type":"uint256"},{"name":"poolSupply","type":"uint256"},{"name":"totalWeight","type":"uint256"},{"name":"poolAmountIn","type":"uint256"},{"name":"swapFee","type":"uint256"}],"outputs":[{"name":"tokenAmountOut","type":"uint256"}]},
{"type":"function","name":"calcPoolInGivenSingleOut","stateMutability":"pure","inputs":[{"name":"tokenBalanceOut","type":"uint256"},{"name":"tokenWeightOut","type":"uint256"},{"name":"poolSupply","type":"uint256"},{"name":"totalWeight","type":"uint256"},{"name":"tokenAmountOut","type":"uint256"},{"name":"swapFee","type":"uint256"}],"outputs":[{"name":"poolAmountIn","type":"uint256"}]},
{"type":"function","name":"swapExactAmountIn","stateMutability":"nonpayable","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenAmountIn","type":"uint256"},{"name":"tokenOut","type":"address"},{"name":"minAmountOut","type":"uint256"},{"name":"maxPrice","type":"uint256"}],"outputs":[{"name":"tokenAmountOut","type":"uint256"},{"name":"spotPriceAfter","type":"uint256"}]},
{"type":"function","name":"swapExactAmountOut","stateMutability":"nonpayable","inputs":[{"name":"tokenIn","type":"address"},{"name":"maxAmountIn","type":"uint256"},{"name":"tokenOut","type":"address"},{"name":"tokenAmountOut","type":"uint256"},{"name":"maxPrice","type":"uint256"}],"outputs":[{"name":"tokenAmountIn","type":"uint256"},{"name":"spotPriceAfter","type":"uint256"}]},
{"type":"function","name":"joinswapExternAmountIn","stateMutability":"nonpayable","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenAmountIn","type":"uint256"},{"name":"minPoolAmountOut","type":"uint256"}],"outputs":[{"name":"poolAmountOut","type":"uint256"}]},
{"type":"function","name":"exitswapPoolAmountIn","stateMutability":"nonpayable","inputs":[{"name":"tokenOut","type":"address"},{"name":"poolAmountIn","type":"uint256"},{"name":"minAmountOut","type":"uint256"}],"outputs":[{"name":"tokenAmountOut","type":"uint256"}]},
{"type":"event","name":"LOG_JOIN","anonymous":false,"inputs":[{"name":"caller","type":"address","indexed":true},{"name":"tokenIn","type":"address","indexed":true},{"name":"tokenAmountIn","type":"uint256","indexed":false}]}
]`,
}

const stakeInfoTuple = `{"name":"info","type":"tuple","components":[{"name":"meta","type":"address[4]"},{"name":"uints","type":"uint256[3]"},{"name":"path","type":"address[]"}]}`

// StakeRouterMetaData is the DataX stake router.
var StakeRouterMetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"stakeTokenInDTPool","stateMutability":"nonpayable","inputs":[` + stakeInfoTuple + `],"outputs":[{"name":"poolTokensOut","type":"uint256"}]},
{"type":"function","name":"stakeETHInDTPool","stateMutability":"payable","inputs":[` + stakeInfoTuple + `],"outputs":[{"name":"poolTokensOut","type":"uint256"}]},
{"type":"function","name":"unstakeTokenFromDTPool","stateMutability":"nonpayable","inputs":[` + stakeInfoTuple + `],"outputs":[{"name":"baseAmountOut","type":"uint256"}]},
{"type":"function","name":"unstakeETHFromDTPool","stateMutability":"nonpayable","inputs":[` + stakeInfoTuple + `],"outputs":[{"name":"baseAmountOut","type":"uint256"}]},
{"type":"function","name":"calcPoolOutGivenTokenIn","stateMutability":"view","inputs":[` + stakeInfoTuple + `],"outputs":[{"name":"poolAmountOut","type":"uint256"},{"name":"dataxFee","type":"uint256"},{"name":"refFee","type":"uint256"}]},
{"type":"function","name":"calcPoolInGivenTokenOut","stateMutability":"view","inputs":[` + stakeInfoTuple + `],"outputs":[{"name":"poolAmountIn","type":"uint256"},{"name":"dataxFee","type":"uint256"},{"name":"refFee","type":"uint256"}]},
{"type":"function","name":"calcTokenOutGivenPoolIn","stateMutability":"view","inputs":[` + stakeInfoTuple + `],"outputs":[{"name":"baseAmountOut","type":"uint256"},{"name":"dataxFee","type":"uint256"},{"name":"refFee","type":"uint256"}]},
{"type":"function","name":"calcFees","stateMutability":"view","inputs":[{"name":"baseAmount","type":"uint256"},{"name":"feeType","type":"string"},{"name":"refFeeRate","type":"uint256"}],"outputs":[{"name":"dataxFee","type":"uint256"},{"name":"refFee","type":"uint256"}]},
{"type":"function","name":"referralFees","stateMutability":"view","inputs":[{"name":"referrer","type":"address"},{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"claimRefFees","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"claimAmount","type":"uint256"}]}
]`,
}

// SwapAdapterMetaData is the Uniswap-V2-style router the DataX trade adapter exposes.
var SwapAdapterMetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"WETH","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"getAmountsOut","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"type":"function","name":"getAmountsIn","stateMutability":"view","inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"type":"function","name":"swapExactETHForTokens","stateMutability":"payable","inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"type":"function","name":"swapETHForExactTokens","stateMutability":"payable","inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"type":"function","name":"swapExactTokensForETH","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"type":"function","name":"swapTokensForExactETH","stateMutability":"nonpayable","inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"type":"function","name":"swapExactTokensForTokens","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"type":"function","name":"swapTokensForExactTokens","stateMutability":"nonpayable","inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`,
}
