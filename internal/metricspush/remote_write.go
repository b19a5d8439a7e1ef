package metricspush

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

// RemoteWritePusher posts a snapshot to a Prometheus remote_write endpoint.
type RemoteWritePusher struct {
	endpoint  string
	authToken string
	external  []prompb.Label
	client    *http.Client
	now       func() time.Time
}

type RemoteWriteOption func(*RemoteWritePusher)

// WithExternalLabels stamps every series with the given labels. Empty values
// are skipped; labels already on a series win.
func WithExternalLabels(labels map[string]string) RemoteWriteOption {
	return func(p *RemoteWritePusher) {
		for name, value := range labels {
			if name, value = strings.TrimSpace(name), strings.TrimSpace(value); name != "" && value != "" {
				p.external = append(p.external, prompb.Label{Name: name, Value: value})
			}
		}
	}
}

func NewRemoteWritePusher(endpoint, authToken string, opts ...RemoteWriteOption) *RemoteWritePusher {
	p := &RemoteWritePusher{
		endpoint:  endpoint,
		authToken: strings.TrimSpace(authToken),
		client:    &http.Client{Timeout: pushTimeout},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RemoteWritePusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}

	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}
	req := prompb.WriteRequest{Timeseries: toTimeSeries(families, p.external, p.now().UnixMilli())}
	if len(req.Timeseries) == 0 {
		return nil
	}

	payload, err := proto.Marshal(protoadapt.MessageV2Of(&req))
	if err != nil {
		return fmt.Errorf("encode write request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(snappy.Encode(nil, payload)))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

// toTimeSeries flattens families into remote_write samples. Histograms
// expand into their _bucket, _sum and _count series; summaries are dropped.
func toTimeSeries(families []*dto.MetricFamily, external []prompb.Label, ts int64) []prompb.TimeSeries {
	var out []prompb.TimeSeries
	emit := func(name string, m *dto.Metric, value float64, extra ...prompb.Label) {
		labels := make([]prompb.Label, 0, len(m.GetLabel())+len(extra)+len(external)+1)
		labels = append(labels, prompb.Label{Name: "__name__", Value: name})
		for _, l := range m.GetLabel() {
			labels = append(labels, prompb.Label{Name: l.GetName(), Value: l.GetValue()})
		}
		labels = append(labels, extra...)
		for _, l := range external {
			if !hasLabel(labels, l.Name) {
				labels = append(labels, l)
			}
		}
		slices.SortFunc(labels, func(a, b prompb.Label) int { return cmp.Compare(a.Name, b.Name) })
		out = append(out, prompb.TimeSeries{
			Labels:  labels,
			Samples: []prompb.Sample{{Value: value, Timestamp: ts}},
		})
	}

	for _, family := range families {
		name := family.GetName()
		for _, m := range family.GetMetric() {
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				if c := m.GetCounter(); c != nil {
					emit(name, m, c.GetValue())
				}
			case dto.MetricType_GAUGE:
				if g := m.GetGauge(); g != nil {
					emit(name, m, g.GetValue())
				}
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				if h == nil {
					continue
				}
				for _, b := range h.GetBucket() {
					if math.IsInf(b.GetUpperBound(), 1) {
						continue
					}
					emit(name+"_bucket", m, float64(b.GetCumulativeCount()),
						prompb.Label{Name: "le", Value: formatBound(b.GetUpperBound())})
				}
				emit(name+"_bucket", m, float64(h.GetSampleCount()), prompb.Label{Name: "le", Value: "+Inf"})
				emit(name+"_sum", m, h.GetSampleSum())
				emit(name+"_count", m, float64(h.GetSampleCount()))
			}
		}
	}
	return out
}

func hasLabel(labels []prompb.Label, name string) bool {
	return slices.ContainsFunc(labels, func(l prompb.Label) bool { return l.Name == name })
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
