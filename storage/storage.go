package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"taskboard-api/domain"
)

// Users live in a single partition keyed by normalized email; tasks are
// partitioned by owner with the task ID as row key.
const userPartition = "user"

const edmInt64 = "Edm.Int64"

// odataString renders v as an OData string literal. Embedded single quotes are
// doubled so request-supplied values cannot terminate the literal and extend
// the filter with their own predicates.
func odataString(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// Storage provides access to the underlying persistence mechanisms.
type Storage struct {
	userTable  *aztables.Client
	taskTable  *aztables.Client
	eventQueue *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, usersTable, tasksTable, eventsQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	ut := svc.NewClient(usersTable)
	tt := svc.NewClient(tasksTable)

	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 30,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	eq, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{userTable: ut, taskTable: tt, eventQueue: eq}, nil
}

type userEntity struct {
	aztables.Entity
	ID            string `json:"Id"`
	Name          string `json:"Name"`
	Role          string `json:"Role"`
	PasswordHash  string `json:"PasswordHash"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type,omitempty"`
}

// CreateUser inserts a new account record. The normalized email is the row
// key, so a second registration differing only in case or whitespace collides
// here and surfaces as domain.ErrEmailTaken.
func (s *Storage) CreateUser(ctx context.Context, u domain.User) error {
	ent := userEntity{
		Entity:        aztables.Entity{PartitionKey: userPartition, RowKey: u.Email},
		ID:            u.ID,
		Name:          u.Name,
		Role:          u.Role,
		PasswordHash:  u.PasswordHash,
		CreatedAt:     u.CreatedAt,
		CreatedAtType: edmInt64,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	if _, err := s.userTable.AddEntity(ctx, payload, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict {
			return domain.ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetUserByEmail retrieves an account by its normalized email. A missing
// account is (nil, nil), not an error.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ent, err := s.userTable.GetEntity(ctx, userPartition, email, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	var ue userEntity
	if err := json.Unmarshal(ent.Value, &ue); err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           ue.ID,
		Email:        ue.RowKey,
		Name:         ue.Name,
		Role:         ue.Role,
		PasswordHash: ue.PasswordHash,
		CreatedAt:    ue.CreatedAt,
	}, nil
}

type taskEntity struct {
	aztables.Entity
	Title         string `json:"Title"`
	Description   string `json:"Description"`
	Status        string `json:"Status"`
	Priority      string `json:"Priority"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type,omitempty"`
	UpdatedAt     int64  `json:"UpdatedAt,string"`
	UpdatedAtType string `json:"UpdatedAt@odata.type,omitempty"`
}

func (e taskEntity) toDomain() domain.Task {
	return domain.Task{
		ID:          e.RowKey,
		Title:       e.Title,
		Description: e.Description,
		Status:      e.Status,
		Priority:    e.Priority,
		AssigneeID:  e.PartitionKey,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// InsertTask persists a newly created task.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	ent := taskEntity{
		Entity:        aztables.Entity{PartitionKey: t.AssigneeID, RowKey: t.ID},
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		Priority:      t.Priority,
		CreatedAt:     t.CreatedAt,
		CreatedAtType: edmInt64,
		UpdatedAt:     t.UpdatedAt,
		UpdatedAtType: edmInt64,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, payload, nil)
	return err
}

// GetTask retrieves a task by ID regardless of owner, so callers can tell a
// missing task apart from one owned by somebody else. A missing task is
// (nil, nil).
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	filter := "RowKey eq " + odataString(id)
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			task := ent.toDomain()
			return &task, nil
		}
	}
	return nil, nil
}

// ListTasks retrieves all tasks owned by the user, newest first.
func (s *Storage) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	filter := "PartitionKey eq " + odataString(ownerID)
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			tasks = append(tasks, ent.toDomain())
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt > tasks[j].CreatedAt })
	return tasks, nil
}

type taskUpdateEntity struct {
	aztables.Entity
	Title         *string `json:"Title,omitempty"`
	Description   *string `json:"Description,omitempty"`
	Status        *string `json:"Status,omitempty"`
	Priority      *string `json:"Priority,omitempty"`
	UpdatedAt     int64   `json:"UpdatedAt,string"`
	UpdatedAtType string  `json:"UpdatedAt@odata.type"`
}

// UpdateTask merges the patch into the stored task. Concurrent writers are
// last-write-wins. A vanished task maps to domain.ErrTaskNotFound.
func (s *Storage) UpdateTask(ctx context.Context, ownerID, id string, patch domain.TaskPatch, updatedAt int64) error {
	upd := taskUpdateEntity{
		Entity:        aztables.Entity{PartitionKey: ownerID, RowKey: id},
		Title:         patch.Title,
		Description:   patch.Description,
		Status:        patch.Status,
		Priority:      patch.Priority,
		UpdatedAt:     updatedAt,
		UpdatedAtType: edmInt64,
	}
	payload, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeMerge,
	})
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return domain.ErrTaskNotFound
		}
		return err
	}
	return nil
}

// DeleteTask removes the task. Deleting a task that is already gone maps to
// domain.ErrTaskNotFound.
func (s *Storage) DeleteTask(ctx context.Context, ownerID, id string) error {
	_, err := s.taskTable.DeleteEntity(ctx, ownerID, id, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return domain.ErrTaskNotFound
		}
		return err
	}
	return nil
}

// PublishTaskEvent enqueues a task event for downstream consumers. Callers
// treat failures as log-and-continue.
func (s *Storage) PublishTaskEvent(ctx context.Context, ev domain.TaskEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.eventQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}
