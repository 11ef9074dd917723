package compdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib"
)

// ErrNoRuleDocument is returned when no rule document is stored for an
// adapter kind. Callers fall back to the built-in defaults for the kind.
var ErrNoRuleDocument = errors.New("no rule document for adapter kind")

// RulesFor returns the stored rule document for an adapter kind. The
// document lives in a single jsonb column so adding rule options never
// needs a migration.
func (p *Postgres) RulesFor(ctx context.Context, kind string) (*RuleDocument, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT document
		FROM adapter_rules
		WHERE kind = $1`, kind).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNoRuleDocument
	}
	if err != nil {
		return nil, fmt.Errorf("Unable to get rule document for kind %s: %v", kind, err)
	}

	doc := &RuleDocument{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("Unable to decode rule document for kind %s: %v", kind, err)
	}
	doc.Kind = kind
	return doc, nil
}

// SaveRules stores or replaces the rule document for an adapter kind.
func (p *Postgres) SaveRules(ctx context.Context, doc *RuleDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("Unable to encode rule document for kind %s: %v", doc.Kind, err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO adapter_rules
		(kind, document)
		VALUES ($1, $2)
		ON CONFLICT (kind) DO UPDATE SET document=$2`, doc.Kind, raw)
	if err != nil {
		return fmt.Errorf("Unable to save rule document for kind %s: %v", doc.Kind, err)
	}
	return nil
}
