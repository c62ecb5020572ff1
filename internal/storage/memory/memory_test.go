package memory

import (
	"testing"

	"github.com/tinoosan/groupledger/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) storetest.Store { return New() })
}
