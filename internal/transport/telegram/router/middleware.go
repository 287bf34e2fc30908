package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"suggestbot/internal/observability/metrics"
	tgui "suggestbot/pkg/tgui"
	logx "suggestbot/pkg/logx"
)

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger := log
					if req != nil && !req.Logger.IsZero() {
						logger = req.Logger
					}
					logger.Error("panic recovered", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// MWRequestLog logs every request and records its latency. Failures are
// logged at ERROR with the update details so they reach the report sink.
func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			logger := log
			if !req.Logger.IsZero() {
				logger = req.Logger
			}
			err := next(ctx, req)
			d := time.Since(start)
			metrics.Handler(req.route(), d)

			fields := []logx.Field{
				logx.String("route", req.route()),
				logx.Duration("dur", d),
			}
			if err != nil {
				if m := req.Message(); m != nil {
					fields = append(fields,
						logx.String("text", tgui.TruncRunes(m.Text, 200)),
						logx.String("media", string(m.Media.Kind)),
					)
				}
				if cb := req.Callback(); cb != nil {
					fields = append(fields, logx.String("data", cb.Data))
				}
				logger.Error("request failed", append(fields, logx.Err(err))...)
				return err
			}
			// short successful requests go to DEBUG
			if d >= 750*time.Millisecond {
				logger.Info("request ok", fields...)
			} else {
				logger.Debug("request ok", fields...)
			}
			return nil
		}
	}
}
