package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_ContainsOrderedUpMigrations(t *testing.T) {
	files, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)
	require.Len(t, files, 5)
	assert.Equal(t, "001_create_products.up.sql", files[0])
	assert.Equal(t, "005_create_pictures.up.sql", files[4])
}
