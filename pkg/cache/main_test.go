package cache

import (
	"flag"
	"os"
	"testing"

	"github.com/nobletooth/pomelo/pkg/utils"
)

func TestMain(m *testing.M) {
	flag.Parse()
	utils.InitLogging()
	os.Exit(m.Run())
}
