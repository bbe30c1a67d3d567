package store

import (
	"errors"
	"fmt"
	"testing"

	sqlmysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// Two creates racing on the same id can both pass the existence read; the
// loser's insert then fails on the primary key and must surface as
// ErrDuplicateOrder, not as a bare driver error.
func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(fmt.Errorf("create order: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, isDuplicateKey(&sqlmysql.MySQLError{
		Number:  dupEntryErrNo,
		Message: "Duplicate entry 'ord-1' for key 'orders.PRIMARY'",
	}))
	assert.True(t, isDuplicateKey(fmt.Errorf("create order: %w", &sqlmysql.MySQLError{
		Number: dupEntryErrNo,
	})))

	assert.False(t, isDuplicateKey(nil))
	assert.False(t, isDuplicateKey(errors.New("connection refused")))
	assert.False(t, isDuplicateKey(&sqlmysql.MySQLError{Number: 1213})) // deadlock
	assert.False(t, isDuplicateKey(gorm.ErrRecordNotFound))
}
