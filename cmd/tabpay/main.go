package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/tabpay/tabpay/internal/clock"
	"github.com/tabpay/tabpay/internal/config"
	"github.com/tabpay/tabpay/internal/logger"
	"github.com/tabpay/tabpay/internal/migration"
	"github.com/tabpay/tabpay/internal/scheduler"
	"github.com/tabpay/tabpay/internal/server"
	"github.com/tabpay/tabpay/pkg/db"
	"github.com/tabpay/tabpay/pkg/redisconn"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		redisconn.Module,
		clock.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
