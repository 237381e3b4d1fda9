package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestETag(t *testing.T) {
	got := ETag([]byte("abc"))
	if got != `"ba7816bf8f01cfea414140de5dae2223"` {
		t.Errorf("ETag = %s", got)
	}
	if ETag([]byte("abd")) == got {
		t.Error("different content produced the same tag")
	}
}
