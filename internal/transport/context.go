package transport

import (
	"context"
	"sync"
)

type ctxKey string

const noticesKey ctxKey = "notices"

type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Notice is a message meant for the shopper. Internal failure details never
// go into a notice.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

type noticeBag struct {
	mu      sync.Mutex
	notices []Notice
}

// WithNotices attaches an empty notice bag to the request context.
func WithNotices(ctx context.Context) context.Context {
	return context.WithValue(ctx, noticesKey, &noticeBag{})
}

// AddNotice records a notice. It is dropped when the context has no bag.
func AddNotice(ctx context.Context, kind NoticeKind, msg string) {
	bag, ok := ctx.Value(noticesKey).(*noticeBag)
	if !ok {
		return
	}

	bag.mu.Lock()
	defer bag.mu.Unlock()
	bag.notices = append(bag.notices, Notice{Kind: kind, Message: msg})
}

func Notices(ctx context.Context) []Notice {
	bag, ok := ctx.Value(noticesKey).(*noticeBag)
	if !ok {
		return nil
	}

	bag.mu.Lock()
	defer bag.mu.Unlock()
	return append([]Notice(nil), bag.notices...)
}
