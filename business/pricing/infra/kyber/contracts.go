package kyber

import "github.com/ethereum/go-ethereum/common"

// NativeToken is the address Kyber uses for ETH.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// NetworkProxyABI covers KyberNetworkProxy.getExpectedRate.
// Rates are 1e18-scaled dest units per whole src unit.
const NetworkProxyABI = `[
	{
		"inputs": [
			{"internalType": "contract ERC20", "name": "src", "type": "address"},
			{"internalType": "contract ERC20", "name": "dest", "type": "address"},
			{"internalType": "uint256", "name": "srcQty", "type": "uint256"}
		],
		"name": "getExpectedRate",
		"outputs": [
			{"internalType": "uint256", "name": "expectedRate", "type": "uint256"},
			{"internalType": "uint256", "name": "worstRate", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`
