package trie_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/kesshi/dscstools/internal/trie"
)

func makeKey(ext, name string) []byte {
	key := make([]byte, 64)
	copy(key[:4], ext)
	copy(key[4:], name)
	return key
}

// firstDiffBitForTest mirrors trie's unexported LSB-first bit compare, kept
// here purely to state an independent expectation for the worked example.
func firstDiffBitForTest(a, b []byte) (int, bool) {
	for i := 0; i < len(a)*8; i++ {
		bitA := (a[i>>3] >> uint(i&7)) & 1
		bitB := (b[i>>3] >> uint(i&7)) & 1
		if bitA != bitB {
			return i, true
		}
	}
	return 0, false
}

func TestBuild_TwoNodeTrie(t *testing.T) {
	keys := [][]byte{
		makeKey("txt ", "hello"),
		makeKey("txt ", "world"),
	}
	trie.SortKeys(keys)
	nodes := trie.Build(keys)

	if len(nodes) != 3 {
		t.Fatalf("len(nodes) = %d, want 3 (sentinel + 2 keys)", len(nodes))
	}
	if nodes[0].CompareBit != trie.Sentinel || nodes[0].Right == 0 {
		t.Fatalf("root placeholder malformed: %+v", nodes[0])
	}

	top := nodes[nodes[0].Right]
	if top.CompareBit == trie.Sentinel {
		t.Fatalf("top node should be a real decision node, got sentinel: %+v", top)
	}

	wantBit, _ := firstDiffBitForTest(keys[0], keys[1])
	if top.CompareBit != wantBit {
		t.Errorf("top.CompareBit = %d, want %d", top.CompareBit, wantBit)
	}

	for _, k := range keys {
		slot, ok := trie.Lookup(nodes, k)
		if !ok {
			t.Errorf("Lookup(%q) = not found, want hit", k[4:])
			continue
		}
		if slot <= 0 || slot >= len(nodes) {
			t.Errorf("Lookup(%q) returned out-of-range slot %d", k[4:], slot)
		}
	}
}

// TestBuild_FirstKeyIsExtractable guards against the first-ever-inserted
// leaf being mistaken for the root placeholder: it always sits at slot 1
// and keeps CompareBit == Sentinel (see trie.insert), so any "has
// payload" check based on CompareBit rather than slot index would wrongly
// treat it as structural.
func TestBuild_FirstKeyIsExtractable(t *testing.T) {
	keys := [][]byte{
		makeKey("txt ", "hello"),
		makeKey("txt ", "world"),
	}
	trie.SortKeys(keys)
	nodes := trie.Build(keys)

	slot, ok := trie.Lookup(nodes, keys[0])
	if !ok {
		t.Fatalf("Lookup(%q) = not found, want hit", keys[0][4:])
	}
	if slot == 0 {
		t.Fatal("first key resolved to slot 0, the root placeholder")
	}
	if nodes[slot].DataID != 0 {
		t.Errorf("first key's slot DataID = %d, want 0", nodes[slot].DataID)
	}
}

func TestBuild_RoundTrip(t *testing.T) {
	names := []string{
		"a/b.bin", "a/c.bin", "a/d/e.bin", "zzz/top.bin", "mid.dat",
		"alpha", "alphabet", "beta", "b", "", "a/b/c/d/e/f.bin",
	}

	keys := make([][]byte, len(names))
	for i, n := range names {
		keys[i] = makeKey("dat ", n)
	}
	trie.SortKeys(keys)
	nodes := trie.Build(keys)

	for i, k := range keys {
		slot, ok := trie.Lookup(nodes, k)
		if !ok {
			t.Errorf("Lookup(%x) = not found, want hit", k)
			continue
		}
		if slot == 0 {
			t.Errorf("Lookup(%x) resolved to the root slot", k)
			continue
		}
		if nodes[slot].DataID != i {
			t.Errorf("Lookup(%x) = slot %d with DataID %d, want DataID %d", k, slot, nodes[slot].DataID, i)
		}
	}

	misses := []string{"nope", "a/b.binx", "ALPHA", "a/c.bi"}
	for _, m := range misses {
		probe := makeKey("dat ", m)
		if _, ok := trie.Lookup(nodes, probe); ok {
			t.Errorf("Lookup(%q) = hit, want miss", m)
		}
	}
}

func TestBuild_RandomKeySets(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 20; trial++ {
		n := rng.Intn(200) + 1
		seen := map[string]bool{}
		var names []string
		for len(names) < n {
			name := fmt.Sprintf("dir%d/file_%d.bin", rng.Intn(5), rng.Intn(1000))
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}

		keys := make([][]byte, len(names))
		for i, nm := range names {
			keys[i] = makeKey("bin ", nm)
		}
		trie.SortKeys(keys)
		nodes := trie.Build(keys)

		if len(nodes) != len(keys)+1 {
			t.Fatalf("trial %d: len(nodes) = %d, want %d", trial, len(nodes), len(keys)+1)
		}

		for _, k := range keys {
			if _, ok := trie.Lookup(nodes, k); !ok {
				t.Fatalf("trial %d: Lookup(%x) = not found, want hit", trial, k)
			}
		}

		probe := makeKey("bin ", "definitely-not-present-key")
		if _, ok := trie.Lookup(nodes, probe); ok {
			t.Fatalf("trial %d: Lookup of absent key unexpectedly hit", trial)
		}
	}
}
