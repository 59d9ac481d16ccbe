package main

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/wyrdstore/wyrd/internal/register"
)

var registerServeAddr string

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Run or inspect a register",
}

var registerServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local, in-memory register server",
	Long:  "Serves the HEAD/PUT REST surface of over an in-memory, open-authorizer Store. Intended for local development and testing against a real client.",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := register.NewServer(register.NewMemoryStore(), register.OpenAuthorizer{})
		log.Printf("register listening on %s", registerServeAddr)
		return http.ListenAndServe(registerServeAddr, srv.Router())
	},
}

func init() {
	registerServeCmd.Flags().StringVar(&registerServeAddr, "addr", ":8787", "listen address")
}
