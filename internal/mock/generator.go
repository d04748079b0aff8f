package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"golang.org/x/time/rate"

	"github.com/sadopc/hookscope/internal/capture"
)

var sampleEvents = []struct {
	method capture.Method
	event  string
}{
	{capture.MethodPOST, "invoice.paid"},
	{capture.MethodPOST, "customer.created"},
	{capture.MethodPUT, "subscription.updated"},
	{capture.MethodDELETE, "customer.deleted"},
	{capture.MethodGET, "health.check"},
	{capture.MethodPATCH, "order.shipped"},
}

// generate injects synthetic captures paced by the configured limit until
// ctx is canceled.
func (s *Server) generate(ctx context.Context) {
	limiter := rate.NewLimiter(s.genLimit, 1)
	for seq := 1; ; seq++ {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		s.Inject(s.genAccount, synthetic(s.genAccount, seq, s.Settings(s.genAccount)))
	}
}

func synthetic(name string, seq int, settings Settings) capture.Record {
	sample := sampleEvents[rand.IntN(len(sampleEvents))]
	rec := capture.Record{
		Method: sample.method,
		Path:   "/api/@" + name,
		Headers: capture.Pairs{
			{Name: "content-type", Value: "application/json"},
			{Name: "user-agent", Value: "hookscope-mock/1.0"},
			{Name: "x-event-id", Value: fmt.Sprintf("evt_%06d", seq)},
		},
		QueryParams:    capture.Pairs{{Name: "seq", Value: fmt.Sprint(seq)}},
		ResponseTimeMs: int64(settings.ResponseTimeMin),
		Response:       capture.Payload(settings.DefaultResponse),
	}
	if sample.method != capture.MethodGET {
		body, _ := json.Marshal(map[string]any{
			"type":   sample.event,
			"seq":    seq,
			"amount": rand.IntN(10000),
		})
		rec.Body = capture.Payload(body)
	}
	return rec
}
