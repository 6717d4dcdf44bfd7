package memory_test

import (
	"testing"

	"github.com/jrsteele09/go-jwt-session/tokenstore/memory"
	"github.com/jrsteele09/go-jwt-session/tokenstore/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, memory.New())
}
