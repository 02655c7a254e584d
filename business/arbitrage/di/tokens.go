// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/flashloan"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Pipeline = di.NewToken[*app.Pipeline]("arbitrage.Pipeline")
)

// Private dependency tokens - internal to arbitrage module
var (
	Builder   = di.NewToken[*flashloan.Builder]("arbitrage:builder")
	Gate      = di.NewToken[*app.ExecutionGate]("arbitrage:gate")
	Evaluator = di.NewToken[*app.ProfitEvaluator]("arbitrage:evaluator")
	Reporter  = di.NewToken[app.Reporter]("arbitrage:reporter")
)

func GetPipeline(c di.ServiceRegistry) *app.Pipeline {
	return di.GetToken(c, Pipeline)
}

func GetBuilder(c di.ServiceRegistry) *flashloan.Builder {
	return di.GetToken(c, Builder)
}

func GetGate(c di.ServiceRegistry) *app.ExecutionGate {
	return di.GetToken(c, Gate)
}

func GetEvaluator(c di.ServiceRegistry) *app.ProfitEvaluator {
	return di.GetToken(c, Evaluator)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
