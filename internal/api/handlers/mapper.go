package handlers

import (
	"encoding/json"

	"github.com/duongdev/nv-internal-sub007/internal/api/dto"
	"github.com/duongdev/nv-internal-sub007/internal/domain/task"
)

// TaskToResponse maps a domain task to its API representation.
func TaskToResponse(t *task.Task) *dto.TaskResponse {
	resp := &dto.TaskResponse{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           string(t.Status),
		AssigneeIDs:      t.AssigneeIDs,
		ScheduledAt:      t.ScheduledAt,
		StartedAt:        t.StartedAt,
		CompletedAt:      t.CompletedAt,
		ExpectedRevenue:  t.ExpectedRevenue,
		ExpectedCurrency: t.ExpectedCurrency,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if resp.AssigneeIDs == nil {
		resp.AssigneeIDs = task.UUIDSlice{}
	}
	if t.Customer != nil {
		resp.Customer = &dto.CustomerResponse{
			ID:    t.Customer.ID,
			Name:  t.Customer.Name,
			Phone: t.Customer.Phone,
		}
	}
	if t.GeoLocation != nil {
		resp.Location = &dto.LocationResponse{
			ID:      t.GeoLocation.ID,
			Address: t.GeoLocation.Address,
			Lat:     t.GeoLocation.Lat,
			Lng:     t.GeoLocation.Lng,
		}
	}
	return resp
}

// ActivityToResponse maps an audit record to its API representation.
func ActivityToResponse(a *task.Activity) *dto.ActivityResponse {
	var payload map[string]interface{}
	if len(a.Payload) > 0 {
		if err := json.Unmarshal(a.Payload, &payload); err != nil {
			payload = map[string]interface{}{}
		}
	}
	return &dto.ActivityResponse{
		ID:        a.ID,
		Topic:     a.Topic,
		Action:    a.Action,
		UserID:    a.UserID,
		Payload:   payload,
		CreatedAt: a.CreatedAt,
	}
}
