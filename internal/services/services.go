// Package services implements the kanban use-cases on top of the
// repositories in internal/store. Every error returned from this package is
// an *apperr.Error.
package services

import (
	"github.com/clikanban/kanban/internal/authz"
	"github.com/clikanban/kanban/internal/metrics"
	"github.com/clikanban/kanban/types"
)

func authorize(m *metrics.Metrics, sess types.Session, op authz.Operation) error {
	if err := authz.Check(sess.Role, op); err != nil {
		m.IncPermissionDenied(string(op), string(sess.Role))
		return err
	}
	return nil
}
