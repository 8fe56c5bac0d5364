// Command token issues a bearer token for the ChickFlow API, for operators
// and local testing. The identity provider issues tokens in production.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mamadbah2/chickflow/internal/auth"
	"github.com/mamadbah2/chickflow/internal/config"
	"github.com/mamadbah2/chickflow/internal/domain/models"
)

func main() {
	userID := flag.String("user", "", "user id to embed in the token")
	role := flag.String("role", string(models.RoleFarmer), "farmer, manager or sales_rep")
	ttl := flag.Duration("ttl", auth.TokenExpiry, "token lifetime")
	envFile := flag.String("env", "", "optional env file to read JWT_SECRET from")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	parsed, err := models.ParseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *ttl <= 0 {
		*ttl = auth.TokenExpiry
	}

	token, err := auth.GenerateToken(cfg.Auth.JWTSecret, *userID, parsed, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(*ttl).Format(time.RFC3339))
}
