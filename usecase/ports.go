package usecase

import (
	"context"
	"time"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

// RemoteGateway is the host application's private API. Implementations own the
// session-scoped memoized state (student id, class maps).
type RemoteGateway interface {
	FetchAllAssignmentData(ctx context.Context) (domain.HostAssignmentBuckets, error)
	FetchAssignmentDetail(ctx context.Context, id int64) (domain.HostAssignmentDetail, error)
	UpdateAssignmentStatus(ctx context.Context, id int64, code int) error
	CreateTask(ctx context.Context, task domain.HostTaskCreate) (int64, error)
	UpdateTask(ctx context.Context, task domain.HostTaskUpdate) error
	UpdateTaskStatus(ctx context.Context, task domain.HostTaskUpdate) error
	DeleteTask(ctx context.Context, id int64) error
	FetchClassColorMap(ctx context.Context) (map[int64]string, error)
	FetchClassList(ctx context.Context) (map[int64]string, error)
	StudentID(ctx context.Context) (int64, error)
}

// ViewRenderer receives incremental render instructions. Calls arrive in mutation order.
type ViewRenderer interface {
	Insert(a domain.Assignment)
	Update(a domain.Assignment)
	Remove(id int64)
	SetColumnVisible(day time.Weekday, visible bool)
}

// Reporter surfaces a failed action to the user.
type Reporter interface {
	Report(action string, err error)
}
