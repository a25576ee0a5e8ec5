// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/investigator/pkg/types"
)

const defaultMaxResults = 20

// matchCount counts matched terms from offsets(), which reports four
// space-separated integers per match.
const matchCount = `(length(offsets(findings_fts)) - length(replace(offsets(findings_fts), ' ', '')) + 1) / 4`

// FindingQuery selects stored findings.
type FindingQuery struct {
	// Query is an FTS4 match expression over title, detail, and evidence.
	Query string

	// InvestigationID restricts results to one investigation.
	InvestigationID string

	// EvidenceType filters by supporting, contradicting, or neutral.
	EvidenceType types.EvidenceType

	// MaxResults limits result count. Zero uses 20.
	MaxResults int
}

// FindingHit is a stored finding with the investigation it belongs to.
type FindingHit struct {
	types.Finding   `yaml:",inline"`
	InvestigationID string `json:"investigation_id" yaml:"investigation_id"`
	Prompt          string `json:"prompt" yaml:"prompt"`

	// Rank is the number of matched terms; zero for filter-only queries.
	Rank int `json:"rank" yaml:"rank"`
}

// SearchFindings queries findings with optional full-text search and
// filters. Full-text results are ordered by how many query terms matched;
// filter-only results by investigation and insertion order.
func (s *Store) SearchFindings(ctx context.Context, q FindingQuery) ([]FindingHit, error) {
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = strings.TrimSpace(q.Query) != ""
	)
	if useFTS {
		qb.WriteString(
			`SELECT f.id, f.investigation_id, f.hypothesis_id, f.title, f.detail, f.evidence,
				f.evidence_type, f.evidence_level, f.source_type, f.source_id,
				i.prompt, `+matchCount+` AS hits
			FROM findings_fts
			JOIN findings f ON f.rowid = findings_fts.docid
			JOIN investigations i ON i.id = f.investigation_id
			WHERE findings_fts MATCH ?`)
		args = append(args, q.Query)
	} else {
		qb.WriteString(
			`SELECT f.id, f.investigation_id, f.hypothesis_id, f.title, f.detail, f.evidence,
				f.evidence_type, f.evidence_level, f.source_type, f.source_id,
				i.prompt, 0 AS hits
			FROM findings f
			JOIN investigations i ON i.id = f.investigation_id
			WHERE 1=1`)
	}
	if q.InvestigationID != "" {
		qb.WriteString(` AND f.investigation_id = ?`)
		args = append(args, q.InvestigationID)
	}
	if q.EvidenceType != "" {
		qb.WriteString(` AND f.evidence_type = ?`)
		args = append(args, string(q.EvidenceType))
	}
	if useFTS {
		qb.WriteString(` ORDER BY hits DESC, f.rowid`)
	} else {
		qb.WriteString(` ORDER BY f.investigation_id, f.rowid`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer rows.Close()

	var out []FindingHit
	for rows.Next() {
		var h FindingHit
		if err := rows.Scan(
			&h.ID, &h.InvestigationID, &h.HypothesisID, &h.Title, &h.Detail, &h.Evidence,
			&h.EvidenceType, &h.EvidenceLevel, &h.SourceType, &h.SourceID,
			&h.Prompt, &h.Rank,
		); err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
