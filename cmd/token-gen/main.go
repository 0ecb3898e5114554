// Command token-gen issues operator JWTs for the write endpoints.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"threelance.backend/internal/config"
	"threelance.backend/pkg/jwt"
)

var knownScopes = map[string]bool{
	jwt.ScopeServicesWrite: true,
	jwt.ScopeContractsRead: true,
}

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], config.Load(), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func parseScopes(raw string) ([]string, error) {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !knownScopes[s] {
			return nil, fmt.Errorf("unknown scope: %s", s)
		}
		scopes = append(scopes, s)
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("at least one scope is required")
	}
	return scopes, nil
}

func run(args []string, cfg *config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("token-gen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "operator", "display name carried in the token")
	id := fs.String("id", "", "operator id (random when empty)")
	scopeList := fs.String("scopes", jwt.ScopeServicesWrite, "comma separated scopes")
	expiry := fs.Duration("expiry", cfg.JWT.Expiry, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	scopes, err := parseScopes(*scopeList)
	if err != nil {
		return err
	}
	if *expiry <= 0 {
		return fmt.Errorf("invalid expiry: %s", *expiry)
	}

	operatorID := uuid.New()
	if *id != "" {
		if operatorID, err = uuid.Parse(*id); err != nil {
			return fmt.Errorf("invalid operator id: %w", err)
		}
	}

	svc := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, *expiry)
	token, err := svc.GenerateToken(operatorID, *name, scopes...)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Fprintln(out, "Generated operator token")
	fmt.Fprintf(out, "OPERATOR_ID=%s\n", operatorID)
	fmt.Fprintf(out, "EXPIRES_AT=%s\n", time.Now().Add(*expiry).UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "TOKEN=%s\n", token)
	return nil
}
