package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/tolerancevision/tolerancevision/pkg/aggregate"
	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

const namespace = "windowqc"

// Source is the read side of the registry.
type Source interface {
	Floors() []registry.Floor
	WarningMultiplier() float64
}

// AlertSource reports the number of firing alerts.
type AlertSource interface {
	FiringCount() int
}

// Families builds the metric families for the current state of src, sorted
// by name. alerts may be nil.
func Families(src Source, alerts AlertSource) []*dto.MetricFamily {
	floors := src.Floors()
	sum := aggregate.Summarize(floors)

	windows := family("windows", "Number of windows per floor and status.")
	floorRate := family("floor_pass_rate_percent", "Share of a floor's windows that pass, 0 to 100.")
	floorDev := family("floor_max_deviation_mm", "Largest diagonal difference on a floor in millimetres.")
	for _, f := range sum.Floors {
		labels := []*dto.LabelPair{
			label("floor", strconv.Itoa(f.Number)),
			label("floor_name", f.Label),
		}
		for _, s := range tolerance.Statuses {
			windows.Metric = append(windows.Metric,
				gauge(float64(f.Counts.Of(s)), append(labels[:2:2], label("status", string(s)))...))
		}
		floorRate.Metric = append(floorRate.Metric, gauge(f.PassRate, labels...))
		floorDev.Metric = append(floorDev.Metric, gauge(f.MaxDeviation, labels...))
	}

	out := []*dto.MetricFamily{}
	if alerts != nil {
		out = append(out, single("alerts_firing", "Number of alerts currently firing.", float64(alerts.FiringCount())))
	}
	out = append(out,
		floorDev,
		floorRate,
		single("floors", "Number of floors in the project.", float64(sum.FloorCount)),
		single("max_deviation_mm", "Largest diagonal difference in the project in millimetres.", sum.MaxDeviation),
		single("pass_rate_percent", "Share of all windows that pass, 0 to 100.", sum.PassRate),
		single("warning_multiplier", "Multiplier k applied to the limit for the warning band.", src.WarningMultiplier()),
		windows,
	)
	return out
}

// Write encodes families to w in the text exposition format.
func Write(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Handler serves GET /metrics for src.
func Handler(src Source, alerts AlertSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		if err := Write(w, Families(src, alerts)); err != nil {
			slog.Error("metrics: write failed", "err", err)
		}
	})
}

func family(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(namespace + "_" + name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func single(name, help string, v float64) *dto.MetricFamily {
	mf := family(name, help)
	mf.Metric = []*dto.Metric{gauge(v)}
	return mf
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
