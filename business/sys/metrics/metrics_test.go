package metrics_test

import (
	"expvar"
	"testing"

	"github.com/ardanlabs/powchain/business/sys/metrics"
)

func Test_BlocksMined(t *testing.T) {
	v := expvar.Get("blocks_mined")
	if v == nil {
		t.Fatalf("Should publish the blocks_mined metric.")
	}

	if got := v.String(); got != "0" {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", "0")
		t.Fatalf("Should report zero before a source is set.")
	}

	var mined uint64
	metrics.BlocksMinedFrom(func() uint64 {
		return mined
	})

	mined = 3
	if got := v.String(); got != "3" {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", "3")
		t.Fatalf("Should read the current count when scraped.")
	}

	mined = 5
	if got := v.String(); got != "5" {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", "5")
		t.Fatalf("Should follow the count without another call.")
	}
}
