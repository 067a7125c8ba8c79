package quant

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/evigate/internal/model"
)

// Expected monotonicity shapes for the linter.
const (
	ShapeIncreasing = "increasing"
	ShapeDecreasing = "decreasing"
	ShapeMonotonic  = "monotonic"
	ShapeUShaped    = "u_shaped"
)

const (
	linterSamples   = 20
	linterTolerance = 1e-6
)

// PoissonHazard returns the probability of at least m Poisson events within
// the given horizon, via the complementary CDF.
func PoissonHazard(ratePerHour, hours float64, m int) float64 {
	lamT := math.Max(0, ratePerHour) * math.Max(0, hours)
	if m <= 1 {
		return 1.0 - math.Exp(-lamT)
	}

	tail := 0.0
	for k := 0; k < m; k++ {
		term := math.Exp(-lamT) * math.Pow(lamT, float64(k)) / factorial(k)
		if math.IsInf(term, 0) || math.IsNaN(term) {
			term = 0
		}
		tail += term
	}
	return 1.0 - tail
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// PPV returns the positive predictive value with a loss-adjusted true
// positive rate. A non-positive denominator yields 0.
func PPV(tpr, fpr, baseRate, pLoss float64) float64 {
	tprEff := tpr * (1.0 - pLoss)
	numerator := tprEff * baseRate
	denominator := numerator + fpr*(1.0-baseRate)
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator
}

// Sanity scans a parameter map and returns warnings for out-of-bounds or
// missing quantitative parameters. Probability-like keys (p_*, prob*, tpr*,
// fpr*, base_rate*) must be numeric and inside [0,1]; mu must be
// non-negative; TPR/FPR without base_rate yields a MISSING warning.
func Sanity(params map[string]interface{}) []model.QuantWarning {
	var warnings []model.QuantWarning
	warn := func(code, message string) {
		warnings = append(warnings, model.QuantWarning{Code: code, Message: message})
	}

	probPrefixes := []string{"p_", "prob", "tpr", "fpr", "base_rate"}
	for key, value := range params {
		lower := strings.ToLower(key)
		isProb := false
		for _, prefix := range probPrefixes {
			if strings.HasPrefix(lower, prefix) {
				isProb = true
				break
			}
		}
		if !isProb {
			continue
		}
		val, ok := toFloat(value)
		if !ok {
			warn("TYPE", fmt.Sprintf("%s must be numeric", key))
			continue
		}
		if val < 0 || val > 1 {
			warn("RANGE", fmt.Sprintf("%s=%g outside [0, 1]", key, val))
		}
	}

	if raw, present := params["mu"]; present {
		if mu, ok := toFloat(raw); !ok {
			warn("TYPE", "mu must be numeric")
		} else if mu < 0 {
			warn("RANGE", "mu must be non-negative")
		}
	}

	_, hasTPR := firstPresent(params, "TPR", "tpr")
	_, hasFPR := firstPresent(params, "FPR", "fpr")
	if _, hasBase := params["base_rate"]; (hasTPR || hasFPR) && !hasBase {
		warn("MISSING", "base_rate required when using TPR/FPR")
	}

	return warnings
}

// MonotonicityLinter samples f over [lo, hi] and checks the sampled sequence
// against the expected shape. Returns a MONOTONICITY warning on violation,
// nil otherwise.
func MonotonicityLinter(f func(float64) float64, param string, lo, hi float64, expectation string) *model.QuantWarning {
	if hi < lo {
		lo, hi = hi, lo
	}
	step := (hi - lo) / float64(linterSamples-1)
	diffs := make([]float64, 0, linterSamples-1)
	prev := f(lo)
	for i := 1; i < linterSamples; i++ {
		cur := f(lo + float64(i)*step)
		diffs = append(diffs, cur-prev)
		prev = cur
	}

	violation := func(message string) *model.QuantWarning {
		return &model.QuantWarning{Code: "MONOTONICITY", Message: message}
	}

	switch expectation {
	case ShapeIncreasing:
		for _, d := range diffs {
			if d < -linterTolerance {
				return violation(fmt.Sprintf("expected %s to be increasing, but function decreases in some regions", param))
			}
		}
	case ShapeDecreasing:
		for _, d := range diffs {
			if d > linterTolerance {
				return violation(fmt.Sprintf("expected %s to be decreasing, but function increases in some regions", param))
			}
		}
	case ShapeUShaped:
		signChanges := 0
		prevSign := sign(diffs[0])
		for _, d := range diffs[1:] {
			s := sign(d)
			if s != 0 && prevSign != 0 && s != prevSign {
				signChanges++
			}
			if s != 0 {
				prevSign = s
			}
		}
		if signChanges < 1 {
			return violation(fmt.Sprintf("expected U-shaped behavior for %s, but function appears monotonic", param))
		}
	case ShapeMonotonic:
		up, down := false, false
		for _, d := range diffs {
			if d > linterTolerance {
				up = true
			}
			if d < -linterTolerance {
				down = true
			}
		}
		if up && down {
			return violation(fmt.Sprintf("expected monotonic behavior for %s, but function has both increasing and decreasing regions", param))
		}
	}
	return nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// SuggestPatch derives a compound hazard rate from the vignette parameters,
// computes the failure probability and the PPV-adjusted false-alert rate,
// and returns the formulas used, one worked numeric example, and all sanity
// warnings collected along the way.
func SuggestPatch(params map[string]interface{}, horizonHours float64) model.QuantPatch {
	alerts := Sanity(params)

	mu := floatOr(params, 0.0, "mu")
	alpha := floatOr(params, 1.0, "alpha")
	tau := floatOr(params, 1.0, "tau")
	pConn := floatOr(params, 1.0, "p_conn")
	kappa := floatOr(params, 1.0, "kappa")
	lam := mu * alpha * tau * pConn * kappa
	m := int(floatOr(params, 1, "m"))
	pFail := PoissonHazard(lam, horizonHours, m)

	tpr := floatOr(params, 0.0, "TPR", "tpr")
	fpr := floatOr(params, 0.0, "FPR", "fpr")
	baseRate := floatOr(params, 0.0, "base_rate")
	pLoss := floatOr(params, 0.0, "p_loss")
	fReportsPerSec := floatOr(params, 1.0/30.0, "f")
	wk := floatOr(params, 0.0, "w_k")

	precision := PPV(tpr, fpr, baseRate, pLoss)
	reportsPerHr := fReportsPerSec * 3600.0
	noiseMass := math.Max(0, (1.0-precision)*reportsPerHr)
	lamFalse := noiseMass * wk
	pFalseKinetic := 1.0 - math.Exp(-lamFalse)

	if tpr > 0 && fpr > 0 && baseRate > 0 {
		if w := MonotonicityLinter(func(t float64) float64 {
			return PPV(t, fpr, baseRate, pLoss)
		}, "tpr", 0, 1, ShapeIncreasing); w != nil {
			alerts = append(alerts, *w)
		}
		if w := MonotonicityLinter(func(f float64) float64 {
			return PPV(tpr, f, baseRate, pLoss)
		}, "fpr", 0, 1, ShapeDecreasing); w != nil {
			alerts = append(alerts, *w)
		}
	}
	if mu > 0 && alpha > 0 && tau > 0 {
		if w := MonotonicityLinter(func(r float64) float64 {
			return PoissonHazard(r, horizonHours, m)
		}, "rate", 0, 2*lam+1, ShapeIncreasing); w != nil {
			alerts = append(alerts, *w)
		}
	}

	equations := []string{
		`\lambda = \mu \cdot \alpha \cdot \tau \cdot p_{\text{conn}} \cdot \kappa`,
		`P_{\text{fail}}(T; m) = 1 - \sum_{k=0}^{m-1} e^{-\lambda T} \frac{(\lambda T)^k}{k!}`,
		`\text{PPV} = \frac{\text{TPR}(1-p_{\text{loss}})\pi}{\text{TPR}(1-p_{\text{loss}})\pi + \text{FPR}(1-\pi)}`,
		`\lambda_{\text{false-kinetic}} = (1-\text{PPV}) f 3600 w_k`,
		`P_{\text{false-kinetic}} = 1 - e^{-\lambda_{\text{false-kinetic}}}`,
	}

	example := map[string]float64{
		"lambda_per_hr":        round6(lam),
		"p_fail_T":             round6(pFail),
		"ppv":                  round6(precision),
		"reports_per_hr":       round3(reportsPerHr),
		"lambda_false_kinetic": round6(lamFalse),
		"p_false_kinetic":      round6(pFalseKinetic),
	}

	return model.QuantPatch{
		LatexEquations: equations,
		Examples:       []map[string]float64{example},
		Warnings:       alerts,
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func firstPresent(params map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func floatOr(params map[string]interface{}, fallback float64, keys ...string) float64 {
	if raw, ok := firstPresent(params, keys...); ok {
		if f, ok := toFloat(raw); ok {
			return f
		}
	}
	return fallback
}

func round3(v float64) float64 { return math.Round(v*1e3) / 1e3 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
