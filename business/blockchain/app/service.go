package app

// BlockchainService is the blockchain context's public surface for other modules.
type BlockchainService struct {
	Feed   BlockFeed
	Gas    GasOracle
	Sender TxSender
}

func NewBlockchainService(feed BlockFeed, gas GasOracle, sender TxSender) *BlockchainService {
	return &BlockchainService{Feed: feed, Gas: gas, Sender: sender}
}
