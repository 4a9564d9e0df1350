// Command token prints a bearer token for the REST API, signed with the
// configured secret key.
//
//	token -s <secret> [-sub admin] [-ttl 24h]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/servicios/internal/flagx"
	"github.com/dmitrijs2005/servicios/internal/server/auth"
	"github.com/dmitrijs2005/servicios/internal/server/config"
)

func main() {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("sub", "admin", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token validity")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-sub", "-ttl"}))

	cfg := config.LoadConfig()
	if cfg.SecretKey == "" {
		fmt.Fprintln(os.Stderr, "no secret key configured (-s or SERVICIOS_SECRET_KEY)")
		os.Exit(2)
	}

	tok, err := auth.GenerateToken(*subject, []byte(cfg.SecretKey), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
