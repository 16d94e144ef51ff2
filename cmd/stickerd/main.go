package main

// @title           Love Facts Stickers API
// @version         1.0
// @description     Drive sticker ingestion and resilient image proxy.

// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey AdminToken
// @in header
// @name Authorization
// @description Admin token. Format: "Bearer {token}"

import (
	"fmt"
	"os"

	_ "github.com/MediaChallengeInitiative/love-facts-stickers-sub000/docs"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
