package dmem

import (
	"strings"
	"testing"
)

func TestStoreThenLoadRoundTrip(t *testing.T) {
	d := New(Config{CacheLatency: 1, MemLatency: 3, HitRate: 1.0, Seed: 1})

	if !d.CanStartTransaction() {
		t.Fatal("expected a fresh DMEM to accept a transaction")
	}
	d.StartTransaction(Txn{Kind: TxnStore, Addr: 0x10, Width: Word, Value: 0x11223344})
	if d.CanStartTransaction() {
		t.Fatal("expected the transaction slot to be occupied")
	}
	d.Step() // HitRate=1.0 with CacheLatency=1, the store completes this cycle
	if !d.HasReadyTransaction() {
		t.Fatal("expected the store to complete after one cycle at a guaranteed cache hit")
	}
	if _, ok := d.TakeReadyTransaction(); !ok {
		t.Fatal("expected TakeReadyTransaction to succeed")
	}

	d.StartTransaction(Txn{Kind: TxnLoad, Addr: 0x10, Width: Word})
	d.Step()
	txn, ok := d.TakeReadyTransaction()
	if !ok {
		t.Fatal("expected the load to complete")
	}
	if txn.Value != 0x11223344 {
		t.Fatalf("expected the stored word back, got 0x%x", txn.Value)
	}
}

func TestMissTakesMemLatency(t *testing.T) {
	d := New(Config{CacheLatency: 1, MemLatency: 5, HitRate: 0.0, Seed: 1})
	d.StartTransaction(Txn{Kind: TxnLoad, Addr: 0, Width: Byte})
	for i := 0; i < 4; i++ {
		d.Step()
		if d.HasReadyTransaction() {
			t.Fatalf("expected a guaranteed miss to take %d cycles, completed early at cycle %d", 5, i+1)
		}
	}
	d.Step()
	if !d.HasReadyTransaction() {
		t.Fatal("expected the transaction to complete on the 5th cycle")
	}
}

func TestLoadImageParsesReadmemhFormat(t *testing.T) {
	image := "@00000000\nAA BB CC DD\n"
	d := New(Config{CacheLatency: 1, MemLatency: 1, HitRate: 1, Seed: 1})
	if err := LoadImage(strings.NewReader(image), d); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	// The word is stored byte-reversed in the image (DD CC BB AA in memory order).
	if got := d.ReadByte(0); got != 0xDD {
		t.Fatalf("byte 0: got 0x%x, want 0xDD", got)
	}
	if got := d.ReadByte(3); got != 0xAA {
		t.Fatalf("byte 3: got 0x%x, want 0xAA", got)
	}
}

func TestLoadImageRejectsByteGroupBeforeAddress(t *testing.T) {
	d := New(Config{CacheLatency: 1, MemLatency: 1, HitRate: 1, Seed: 1})
	if err := LoadImage(strings.NewReader("AA BB CC DD\n"), d); err == nil {
		t.Fatal("expected an error for a byte group with no preceding address marker")
	}
}
