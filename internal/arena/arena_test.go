package arena

import "testing"

func TestArena_InsertGet(t *testing.T) {
	a := New[int]()

	k1 := a.Insert(10)
	k2 := a.Insert(20)

	if k1.IsNull() || k2.IsNull() {
		t.Fatal("Insert returned null key")
	}
	if k1 == k2 {
		t.Fatal("keys must be distinct")
	}
	if got := *a.Get(k1); got != 10 {
		t.Errorf("Get(k1) = %d, want 10", got)
	}
	if got := *a.Get(k2); got != 20 {
		t.Errorf("Get(k2) = %d, want 20", got)
	}
}

func TestArena_PointersStable(t *testing.T) {
	a := New[int]()

	k := a.Insert(1)
	p := a.Get(k)

	for i := range 5 * chunkSize {
		a.Insert(i)
	}

	*p = 42
	if got := *a.Get(k); got != 42 {
		t.Errorf("value through old pointer = %d, want 42", got)
	}
	if a.Len() != 5*chunkSize+1 {
		t.Errorf("Len() = %d, want %d", a.Len(), 5*chunkSize+1)
	}
}

func TestArena_UnknownKeyPanics(t *testing.T) {
	a := New[string]()
	a.Insert("x")

	defer func() {
		if recover() == nil {
			t.Error("Get with unknown key should panic")
		}
	}()
	a.Get(Key(7))
}

func TestArena_Lookup(t *testing.T) {
	a := New[string]()
	k := a.Insert("x")

	if _, ok := a.Lookup(0); ok {
		t.Error("Lookup(0) should miss")
	}
	if v, ok := a.Lookup(k); !ok || *v != "x" {
		t.Errorf("Lookup(k) = %v, %v", v, ok)
	}
}

func TestArena_Range(t *testing.T) {
	a := New[int]()
	for i := range chunkSize + 3 {
		a.Insert(i * 2)
	}

	var n int
	a.Range(func(k Key, v *int) bool {
		if *v != (int(k)-1)*2 {
			t.Errorf("Range value for key %d = %d, want %d", k, *v, (int(k)-1)*2)
		}
		n++
		return true
	})
	if n != chunkSize+3 {
		t.Errorf("Range visited %d values, want %d", n, chunkSize+3)
	}

	n = 0
	a.Range(func(Key, *int) bool {
		n++
		return n < 2
	})
	if n != 2 {
		t.Errorf("Range after stop visited %d values, want 2", n)
	}
}
