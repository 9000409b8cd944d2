package blockchain

// platformABI is the subset of the trading platform contract used by the ledger engine
const platformABI = `[
	{"anonymous":false,"inputs":[{"internalType":"address","name":"user","type":"address","indexed":true},{"internalType":"string","name":"symbol","type":"string","indexed":false},{"internalType":"uint256","name":"quantity","type":"uint256","indexed":false},{"internalType":"uint256","name":"totalCost","type":"uint256","indexed":false}],"name":"CoinBought","type":"event"},
	{"anonymous":false,"inputs":[{"internalType":"address","name":"user","type":"address","indexed":false},{"internalType":"string","name":"symbol","type":"string","indexed":false},{"internalType":"uint256","name":"quantity","type":"uint256","indexed":false}],"name":"CoinSold","type":"event"},
	{"inputs":[],"name":"admin","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"adminRegister","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"approveFunds","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"rejectFunds","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"getAllPendingRequests","outputs":[{"internalType":"address[]","name":"","type":"address[]"},{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getBorrowedAmount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"user","type":"address"},{"internalType":"string","name":"symbol","type":"string"}],"name":"getCoinBalance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getTransactionHistory","outputs":[{"components":[{"internalType":"string","name":"txType","type":"string"},{"internalType":"string","name":"symbol","type":"string"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"timestamp","type":"uint256"}],"internalType":"struct CryptoPlatform.Transaction[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getUSDBalance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getUserHoldings","outputs":[{"internalType":"string[]","name":"","type":"string[]"},{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"pendingRequests","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"registered","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"}
]`
