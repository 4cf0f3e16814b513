package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestViolatedConstraint(t *testing.T) {
	t.Parallel()

	unique := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_key"}
	assert.Equal(t, "users_email_key", violatedConstraint(unique))
	assert.Equal(t, "users_email_key", violatedConstraint(fmt.Errorf("exec: %w", unique)))

	otherPg := &pgconn.PgError{Code: "23503", ConstraintName: "tasks_fk"}
	assert.Empty(t, violatedConstraint(otherPg))
	assert.Empty(t, violatedConstraint(errors.New("plain error")))
	assert.Empty(t, violatedConstraint(nil))
}
