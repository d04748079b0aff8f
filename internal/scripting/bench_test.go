package scripting

import (
	"testing"
	"time"
)

func BenchmarkFilterEval(b *testing.B) {
	engine := NewEngine(5 * time.Second)
	rec := sampleRecord()

	b.Run("Method", func(b *testing.B) {
		f, err := engine.Compile(`req.method == "POST"`)
		if err != nil {
			b.Fatal(err)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if res := f.Eval(rec); res.Err != nil {
				b.Fatal(res.Err)
			}
		}
	})

	b.Run("BodyField", func(b *testing.B) {
		f, err := engine.Compile(`req.body.type.startsWith("invoice.")`)
		if err != nil {
			b.Fatal(err)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if res := f.Eval(rec); res.Err != nil {
				b.Fatal(res.Err)
			}
		}
	})
}
