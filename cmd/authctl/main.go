package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/otp-auth-service/internal/tools/account"
	"github.com/sandeepkv93/otp-auth-service/internal/tools/loadgen"
	"github.com/sandeepkv93/otp-auth-service/internal/tools/migrate"
	"github.com/sandeepkv93/otp-auth-service/internal/tools/obscheck"
	"github.com/sandeepkv93/otp-auth-service/internal/tools/seed"
)

func main() {
	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Operator tooling for the OTP auth service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		migrate.NewRootCommand(),
		seed.NewRootCommand(),
		account.NewRootCommand(),
		loadgen.NewRootCommand(),
		obscheck.NewRootCommand(),
	)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
