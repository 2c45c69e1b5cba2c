package analysis

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"
)

// spectrumSize is the STFT frame length of the spectral distance.
const spectrumSize = 1024

// AudioMetrics compares a rendered transcription with the recording in the
// time domain. It is diagnostic only and plays no part in fitness.
type AudioMetrics struct {
	SampleRate    int     `json:"sample_rate"`
	Frames        int     `json:"frames"`
	TimeRMSE      float64 `json:"time_rmse"`
	EnvelopeRMSDB float64 `json:"envelope_rmse_db"`
	// SpectralRMSDB is the dB distance of the frame-averaged magnitude
	// spectra.
	SpectralRMSDB float64 `json:"spectral_rmse_db"`
	Correlation   float64 `json:"correlation"`
}

// CompareAudio measures how closely candidate follows reference. Both are
// RMS-normalized first so overall level differences are ignored.
func CompareAudio(reference, candidate []float64, sampleRate int) AudioMetrics {
	m := AudioMetrics{SampleRate: sampleRate}
	n := len(reference)
	if len(candidate) < n {
		n = len(candidate)
	}
	m.Frames = n
	if n == 0 || sampleRate <= 0 {
		return m
	}
	ref := normalizeRMS(reference[:n], 0.1)
	cand := normalizeRMS(candidate[:n], 0.1)

	sse, _ := SumSquaredError(ref, cand)
	m.TimeRMSE = math.Sqrt(sse / float64(n))

	er := vecmath.DotProduct(ref, ref)
	ec := vecmath.DotProduct(cand, cand)
	if er > 0 && ec > 0 {
		m.Correlation = vecmath.DotProduct(ref, cand) / math.Sqrt(er*ec)
	}

	frame := sampleRate / 50
	if frame < 16 {
		frame = 16
	}
	refEnv := rmsEnvelope(ref, frame, frame/2)
	candEnv := rmsEnvelope(cand, frame, frame/2)
	if len(refEnv) > 0 {
		var sum float64
		for i := range refEnv {
			d := linToDB(refEnv[i]) - linToDB(candEnv[i])
			sum += d * d
		}
		m.EnvelopeRMSDB = math.Sqrt(sum / float64(len(refEnv)))
	}
	m.SpectralRMSDB = spectralDistance(ref, cand)
	return m
}

// spectralDistance averages Hann-windowed magnitude spectra over
// half-overlapping frames and returns the RMS dB difference per bin. Signals
// shorter than a frame are zero-padded into one frame.
func spectralDistance(ref, cand []float64) float64 {
	plan, err := algofft.NewPlanReal64(spectrumSize)
	if err != nil {
		return math.NaN()
	}
	hann, err := window.Hann(spectrumSize)
	if err != nil {
		return math.NaN()
	}
	nBins := spectrumSize / 2
	avgRef := make([]float64, nBins)
	avgCand := make([]float64, nBins)
	specRef := make([]complex128, nBins+1)
	specCand := make([]complex128, nBins+1)
	bufRef := make([]float64, spectrumSize)
	bufCand := make([]float64, spectrumSize)

	frames := 0
	for pos := 0; frames == 0 || pos+spectrumSize <= len(ref); pos += spectrumSize / 2 {
		for i := range bufRef {
			bufRef[i], bufCand[i] = 0, 0
			if pos+i < len(ref) {
				bufRef[i] = ref[pos+i] * hann[i]
				bufCand[i] = cand[pos+i] * hann[i]
			}
		}
		plan.Forward(specRef, bufRef)
		plan.Forward(specCand, bufCand)
		for k := 1; k < nBins; k++ {
			avgRef[k] += cmplx.Abs(specRef[k])
			avgCand[k] += cmplx.Abs(specCand[k])
		}
		frames++
	}

	var sum float64
	for k := 1; k < nBins; k++ {
		d := linToDB(avgRef[k]/float64(frames)) - linToDB(avgCand[k]/float64(frames))
		sum += d * d
	}
	return math.Sqrt(sum / float64(nBins-1))
}

func normalizeRMS(x []float64, target float64) []float64 {
	out := append([]float64(nil), x...)
	r := rms(x)
	if r <= 1e-12 {
		return out
	}
	vecmath.ScaleBlockInPlace(out, target/r)
	return out
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(vecmath.DotProduct(x, x) / float64(len(x)))
}

func rmsEnvelope(x []float64, frame, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := range out {
		start := i * hop
		out[i] = rms(x[start : start+frame])
	}
	return out
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20 * math.Log10(x)
}
