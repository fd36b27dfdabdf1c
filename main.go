package main

import (
	"log"
	"os"
	"time"

	"bitbucket.org/colegioandes/backend/api"
	"bitbucket.org/colegioandes/backend/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli"
)

// @title backend API
// @version 0.1
// @description Api for enrollments and payment logic.

// @host api.colegioandes.mx
// @BasePath /
// @schemes http https

// @securityDefinitions.apiKey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	_ = godotenv.Load("dev.env")

	app := cli.NewApp()
	app.Name = "Go School Service"
	app.Version = "1.00"
	app.Compiled = time.Now()
	app.Commands = []cli.Command{
		{
			Name:  "backend-up",
			Usage: "This command starts the backend service",
			Action: func(c *cli.Context) error {
				StartServer(api.GetRoutes())
				return nil
			},
		},
		{
			Name:  "payments-expire",
			Usage: "This command fails pending OXXO and SPEI payments past their voucher expiry",
			Action: func(c *cli.Context) error {
				server.RunExpireSweep()
				return nil
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func StartServer(routes []*server.Route) {
	ctx := server.GetAppContext()
	ctx.CreateMySQLConnection()
	ctx.CreateSMTPConnection()
	ctx.CreateStripeIntegration()
	ctx.CreateConektaIntegration()
	ctx.CreateNewSessionS3()
	ctx.CreateLedgerEngine()

	server.UpServer(routes, ctx)
}
