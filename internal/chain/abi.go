package chain

// Minimal ABI fragments for the deployed contracts. Only the methods the
// gateway calls are listed.

const erc20Fragments = `
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}`

// DSCTokenABI covers the stablecoin: ERC20 plus ownable mint/burn.
const DSCTokenABI = `[` + erc20Fragments + `,
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"_to","type":"address"},{"name":"_amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"_amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"renounceOwnership","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

// WrappedAssetABI covers WETH9-style wrappers.
const WrappedAssetABI = `[` + erc20Fragments + `,
	{"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"wad","type":"uint256"}],"outputs":[]}
]`

// DSCEngineABI covers the collateral engine.
const DSCEngineABI = `[
	{"type":"function","name":"getAccountInformation","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"totalDscMinted","type":"uint256"},{"name":"collateralValueInUsd","type":"uint256"}]},
	{"type":"function","name":"getHealthFactor","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getAccountCollateralValued","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCollateralBalanceOfUser","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCollateralTokens","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"getCollateralTokenPriceFeed","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getTokenAmountFromUsd","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"usdAmountInWei","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getUsdValue","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"depositCollateral","stateMutability":"nonpayable","inputs":[{"name":"tokenCollateralAddress","type":"address"},{"name":"amountCollateral","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"mintDSC","stateMutability":"nonpayable","inputs":[{"name":"amountDscToMint","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"depositCollateralAndMintDSC","stateMutability":"nonpayable","inputs":[{"name":"tokenCollateralAddress","type":"address"},{"name":"amountCollateral","type":"uint256"},{"name":"amountDscToMint","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"redeemCollateral","stateMutability":"nonpayable","inputs":[{"name":"tokenCollateralAddress","type":"address"},{"name":"amountCollateral","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"burnDSC","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"redeemCollateralForDSC","stateMutability":"nonpayable","inputs":[{"name":"tokenCollateralAddress","type":"address"},{"name":"amountCollateral","type":"uint256"},{"name":"amountDscToBurn","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"liquidate","stateMutability":"nonpayable","inputs":[{"name":"collateral","type":"address"},{"name":"user","type":"address"},{"name":"debtToCover","type":"uint256"}],"outputs":[]}
]`
