package wavelet

import "testing"

func benchmarkTransform(b *testing.B, m Method, us bool) {
	p := DefaultParams()
	p.Height = 32
	p.Width = 200
	p.EndTime = 2
	p.Beta = 4
	p.Method = m
	p.Undersample = us
	tr, err := NewTransformer(16000, p)
	if err != nil {
		b.Fatalf("NewTransformer: %v", err)
	}
	sig := makeSine(16000, 440, 2, 10000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tr.Transform(sig); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTransformDirect(b *testing.B)            { benchmarkTransform(b, MethodDirect, false) }
func BenchmarkTransformDirectUndersample(b *testing.B) { benchmarkTransform(b, MethodDirect, true) }
func BenchmarkTransformOverlapAdd(b *testing.B)        { benchmarkTransform(b, MethodOverlapAdd, false) }
