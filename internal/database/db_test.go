package database

import (
	"testing"

	"license-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureAdmin(t *testing.T) {
	db := NewTestDB(t)

	require.NoError(t, EnsureAdmin(db, "admin", "first", zap.NewNop()))
	// A second call must not reset the password.
	require.NoError(t, EnsureAdmin(db, "admin", "second", zap.NewNop()))

	var users []model.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, model.RoleAdmin, users[0].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("first")))
}

func TestMigrateCreatesTables(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []interface{}{
		&model.License{}, &model.User{}, &model.LoginLog{}, &model.OperationLog{}, &model.LicenseUsage{},
	} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}
