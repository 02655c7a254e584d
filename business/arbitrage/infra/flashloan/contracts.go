package flashloan

// ContractABI covers the entry point of the deployed loan/trade contract.
// direction is the arbitrage direction wire value.
const ContractABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "_solo", "type": "address"},
			{"internalType": "address", "name": "_token", "type": "address"},
			{"internalType": "uint256", "name": "_amount", "type": "uint256"},
			{"internalType": "uint8", "name": "_direction", "type": "uint8"}
		],
		"name": "initiateFlashloan",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`
