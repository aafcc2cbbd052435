// Package hostapi is the Remote Gateway: a fasthttp client for the host school
// application's private JSON API.
package hostapi

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

// Config controls how the client reaches the host.
type Config struct {
	BaseURL         string
	SessionToken    string
	StudentID       int64
	Timeout         time.Duration
	MaxConnsPerHost int
	// Dial overrides the connection dialer (in-memory listeners in tests).
	Dial fasthttp.DialFunc
}

// Client implements usecase.RemoteGateway. Session-scoped lookups (student id, class
// colours, class names) are fetched once and kept until Invalidate.
type Client struct {
	base    string
	token   string
	timeout time.Duration
	http    *fasthttp.Client
	logger  *zap.Logger

	group     singleflight.Group
	mu        sync.RWMutex
	presetID  int64
	studentID int64
	colors    map[int64]string
	classes   map[int64]string
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = 8
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.SessionToken,
		timeout: cfg.Timeout,
		http: &fasthttp.Client{
			Name:                "hunter-sync",
			MaxConnsPerHost:     cfg.MaxConnsPerHost,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
			Dial:                cfg.Dial,
		},
		logger:    logger.Named("hostapi"),
		presetID:  cfg.StudentID,
		studentID: cfg.StudentID,
	}
}

// FetchAllAssignmentData returns the full assignment-center listing.
func (c *Client) FetchAllAssignmentData(ctx context.Context) (domain.HostAssignmentBuckets, error) {
	var buckets domain.HostAssignmentBuckets
	err := c.do(ctx, fasthttp.MethodGet, pathAssignmentCenter, nil, &buckets)
	return buckets, err
}

// FetchAssignmentDetail returns the lazily loaded detail of one assignment.
func (c *Client) FetchAssignmentDetail(ctx context.Context, id int64) (domain.HostAssignmentDetail, error) {
	studentID, err := c.StudentID(ctx)
	if err != nil {
		return domain.HostAssignmentDetail{}, err
	}
	var detail domain.HostAssignmentDetail
	path := fmt.Sprintf(pathAssignmentDetail, id, studentID)
	err = c.do(ctx, fasthttp.MethodGet, path, nil, &detail)
	return detail, err
}

// UpdateAssignmentStatus writes a host status code for an assignment.
func (c *Client) UpdateAssignmentStatus(ctx context.Context, id int64, code int) error {
	body := assignmentStatusBody{AssignmentIndexID: id, AssignmentStatus: code}
	return c.do(ctx, fasthttp.MethodPost, pathAssignmentStatus, body, nil)
}

var numericID = regexp.MustCompile(`^\d+$`)

// CreateTask creates a user task and returns the id the host assigned. The host answers
// with the bare id; anything else is a malformed response.
func (c *Client) CreateTask(ctx context.Context, task domain.HostTaskCreate) (int64, error) {
	raw, err := c.doRaw(ctx, fasthttp.MethodPost, pathTask, task)
	if err != nil {
		return 0, err
	}
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if !numericID.MatchString(text) {
		return 0, domain.WrapError(domain.ErrCodeRemote, fmt.Sprintf("create task returned %q", text), domain.ErrMalformedResponse)
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, domain.WrapError(domain.ErrCodeRemote, "create task id", err)
	}
	return id, nil
}

// UpdateTask sends the changed fields of a task.
func (c *Client) UpdateTask(ctx context.Context, task domain.HostTaskUpdate) error {
	return c.do(ctx, fasthttp.MethodPut, fmt.Sprintf(pathTaskByID, task.UserTaskID), task, nil)
}

// UpdateTaskStatus writes the status of a task.
func (c *Client) UpdateTaskStatus(ctx context.Context, task domain.HostTaskUpdate) error {
	if task.TaskStatus == nil {
		return domain.ErrInvalidPayload
	}
	return c.do(ctx, fasthttp.MethodPost, pathTaskStatus, task, nil)
}

// DeleteTask removes a user task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, fasthttp.MethodDelete, fmt.Sprintf(pathTaskByID, id), nil, nil)
}

// FetchClassColorMap returns section id to colour, memoized for the session.
func (c *Client) FetchClassColorMap(ctx context.Context) (map[int64]string, error) {
	return c.memoMap(ctx, "colors", &c.colors, func(ctx context.Context) (map[int64]string, error) {
		var rows []sectionColor
		if err := c.do(ctx, fasthttp.MethodGet, pathSectionColors, nil, &rows); err != nil {
			return nil, err
		}
		out := make(map[int64]string, len(rows))
		for _, r := range rows {
			out[r.SectionID] = r.Color
		}
		return out, nil
	})
}

// FetchClassList returns section id to class name, memoized for the session.
func (c *Client) FetchClassList(ctx context.Context) (map[int64]string, error) {
	return c.memoMap(ctx, "classes", &c.classes, func(ctx context.Context) (map[int64]string, error) {
		studentID, err := c.StudentID(ctx)
		if err != nil {
			return nil, err
		}
		var rows []studentClass
		if err := c.do(ctx, fasthttp.MethodGet, fmt.Sprintf(pathClasses, studentID), nil, &rows); err != nil {
			return nil, err
		}
		out := make(map[int64]string, len(rows))
		for _, r := range rows {
			out[r.SectionID] = r.SectionIdentifier
		}
		return out, nil
	})
}

// StudentID returns the signed-in user's id, from config or the host session context.
func (c *Client) StudentID(ctx context.Context) (int64, error) {
	c.mu.RLock()
	id := c.studentID
	c.mu.RUnlock()
	if id != 0 {
		return id, nil
	}

	v, err, _ := c.group.Do("student", func() (any, error) {
		var session sessionContext
		if err := c.do(ctx, fasthttp.MethodGet, pathContext, nil, &session); err != nil {
			return int64(0), err
		}
		if session.UserInfo.UserID == 0 {
			return int64(0), domain.WrapError(domain.ErrCodeUnauthorized, "no signed-in user", domain.ErrMalformedResponse)
		}
		c.mu.Lock()
		c.studentID = session.UserInfo.UserID
		c.mu.Unlock()
		return session.UserInfo.UserID, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Ping checks that the host answers with a valid session.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, fasthttp.MethodGet, pathContext, nil, nil)
}

// Invalidate drops the memoized session lookups.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.studentID = c.presetID
	c.colors = nil
	c.classes = nil
}

func (c *Client) memoMap(ctx context.Context, key string, slot *map[int64]string, fetch func(context.Context) (map[int64]string, error)) (map[int64]string, error) {
	c.mu.RLock()
	cached := *slot
	c.mu.RUnlock()
	if cached != nil {
		return copyMap(cached), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		cached := *slot
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		m, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		*slot = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return copyMap(v.(map[int64]string)), nil
}

func copyMap(m map[int64]string) map[int64]string {
	out := make(map[int64]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	raw, err := c.doRaw(ctx, method, path, body)
	if err != nil || dst == nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.WrapError(domain.ErrCodeRemote, fmt.Sprintf("%s %s: %v", method, path, err), domain.ErrMalformedResponse)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.base + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.token != "" {
		req.Header.SetCookie(sessionCookie, c.token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCodeInvalid, "encode request", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	start := time.Now()
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		c.logger.Warn("host request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeRemote, fmt.Sprintf("%s %s", method, path), err)
	}
	status := resp.StatusCode()
	c.logger.Debug("host request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)))

	if err := statusError(method, path, status); err != nil {
		return nil, err
	}
	return append([]byte(nil), resp.Body()...), nil
}

func statusError(method, path string, status int) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := fmt.Sprintf("%s %s: status %d", method, path, status)
	switch {
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return domain.WrapError(domain.ErrCodeUnauthorized, msg, domain.ErrUnauthorized)
	case status == fasthttp.StatusNotFound:
		return domain.NewError(domain.ErrCodeNotFound, msg)
	case status >= 400 && status < 500:
		return domain.NewError(domain.ErrCodeInvalid, msg)
	default:
		return domain.NewError(domain.ErrCodeRemote, msg)
	}
}
