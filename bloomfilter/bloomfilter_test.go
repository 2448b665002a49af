package bloomfilter

import "testing"

func TestAddCheck(t *testing.T) {
	bf := New(1024, 4)

	keys := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	for _, k := range keys {
		bf.Add(k)
	}

	for _, k := range keys {
		if !bf.Check(k) {
			t.Fatalf("expected %q to be present", k)
		}
	}
}

func TestNoFalseNegatives(t *testing.T) {
	bf := New(4096, 6)

	for i := 0; i < 500; i++ {
		bf.Add([]byte{byte(i), byte(i >> 8)})
	}

	for i := 0; i < 500; i++ {
		if !bf.Check([]byte{byte(i), byte(i >> 8)}) {
			t.Fatalf("false negative for key %d", i)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	bf := New(2048, 5)
	bf.Add([]byte("k1"))
	bf.Add([]byte("k2"))

	data, err := bf.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if !restored.Check([]byte("k1")) || !restored.Check([]byte("k2")) {
		t.Fatalf("restored filter lost membership")
	}
}

func TestGrowsUnderLoad(t *testing.T) {
	bf := New(64, 3)
	initial := bf.size

	for i := 0; i < 200; i++ {
		bf.Add([]byte{byte(i)})
	}

	if bf.size <= initial {
		t.Fatalf("expected filter to grow, stayed at %d", bf.size)
	}

	for i := 0; i < 200; i++ {
		if !bf.Check([]byte{byte(i)}) {
			t.Fatalf("lost key %d after growth", i)
		}
	}
}
