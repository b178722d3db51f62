//go:build integration_test || all_tests

package test

import (
	"context"
	"net/http"
)

func (s *IntegrationTestSuite) TestWorkouts() {
	ctx := context.Background()
	token := s.register(ctx, fakeCredentials())
	other := s.register(ctx, fakeCredentials())

	for _, date := range []string{"2026-01-05", "2026-01-07", "2026-01-09"} {
		status, body := s.do(ctx, "POST", "/api/workouts", token, map[string]any{
			"date": date,
			"exercises": []map[string]any{
				{"name": "Deadlift", "sets": []map[string]any{{"reps": 5, "weight": 140}}},
			},
		})
		s.Require().Equal(http.StatusCreated, status, body)
	}

	status, body := s.do(ctx, "POST", "/api/workouts", token, map[string]any{"exercises": []any{}})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("At least one exercise is required", body["message"])

	status, body = s.do(ctx, "GET", "/api/workouts?page=1&limit=2", token, nil)
	s.Require().Equal(http.StatusOK, status)
	workouts := body["workouts"].([]any)
	s.Require().Len(workouts, 2)
	pagination := body["pagination"].(map[string]any)
	s.Equal(float64(3), pagination["totalWorkouts"])
	s.Equal(float64(2), pagination["totalPages"])
	s.Equal(true, pagination["hasNext"])

	id := workouts[0].(map[string]any)["_id"].(string)
	status, _ = s.do(ctx, "GET", "/api/workouts/"+id, other, nil)
	s.Equal(http.StatusNotFound, status)

	status, body = s.do(ctx, "PUT", "/api/workouts/"+id, token, map[string]any{"notes": "felt strong"})
	s.Require().Equal(http.StatusOK, status, body)
	s.Equal("felt strong", body["workout"].(map[string]any)["notes"])

	status, body = s.do(ctx, "GET", "/api/workouts/stats", token, nil)
	s.Require().Equal(http.StatusOK, status, body)
	s.Equal(float64(3), body["totalWorkouts"])

	status, _ = s.do(ctx, "DELETE", "/api/workouts/"+id, token, nil)
	s.Require().Equal(http.StatusOK, status)
	status, _ = s.do(ctx, "GET", "/api/workouts/"+id, token, nil)
	s.Equal(http.StatusNotFound, status)

	status, _ = s.do(ctx, "GET", "/api/workouts/not-a-uuid", token, nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestWeightUpsertAndHistory() {
	ctx := context.Background()
	token := s.register(ctx, fakeCredentials())

	status, body := s.do(ctx, "POST", "/api/weight", token, map[string]any{"weight": 182.4, "date": "2026-02-01"})
	s.Require().Equal(http.StatusCreated, status, body)
	firstID := body["weightEntry"].(map[string]any)["_id"]

	// same day again updates the reading
	status, body = s.do(ctx, "POST", "/api/weight", token, map[string]any{"weight": 181.9, "date": "2026-02-01"})
	s.Require().Equal(http.StatusOK, status, body)
	s.Equal(firstID, body["weightEntry"].(map[string]any)["_id"])
	s.Equal(181.9, body["weightEntry"].(map[string]any)["weight"])

	status, body = s.do(ctx, "POST", "/api/weight", token, map[string]any{"weight": 180.5, "date": "2026-02-08"})
	s.Require().Equal(http.StatusCreated, status, body)

	status, body = s.do(ctx, "GET", "/api/weight/stats", token, nil)
	s.Require().Equal(http.StatusOK, status, body)
	s.Equal(float64(2), body["totalEntries"])
	s.Equal(180.5, body["currentWeight"])

	status, body = s.do(ctx, "GET", "/api/weight/progress?period=all", token, nil)
	s.Require().Equal(http.StatusOK, status, body)
	s.Equal("all", body["period"])

	status, body = s.do(ctx, "GET", "/api/weight/progress?period=2y", token, nil)
	s.Equal(http.StatusBadRequest, status, body)

	status, body = s.do(ctx, "GET", "/api/history", token, nil)
	s.Require().Equal(http.StatusOK, status, body)
	s.Len(body["activities"], 2)
}
