package sqlite_test

import (
	"testing"

	"github.com/sagarc03/photoshelf/database/internal/repotest"
)

func TestRepo(t *testing.T) {
	repotest.Run(t, setupTestRepo)
}
