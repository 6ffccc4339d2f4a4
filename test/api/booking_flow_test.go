package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = makeRequest("GET", "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/reservations/patient", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = makeRequest("GET", "/timeslots?start_date=2024-01-01&end_date=2024-01-01", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStaffOnlyEndpoints(t *testing.T) {
	requireStaff(t)

	date := time.Now().AddDate(0, 0, 14).Format("2006-01-02")

	resp := makeRequest("GET", fmt.Sprintf("/timeslots?start_date=%s&end_date=%s", date, date), nil, staffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())

	resp = makeRequest("GET", "/schedule/default", nil, staffToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
}

func TestSlotGenerationIdempotent(t *testing.T) {
	requireStaff(t)

	date := time.Now().AddDate(0, 3, 0).Format("2006-01-02")
	body := map[string]interface{}{"date": date, "is_open": true}

	resp := makeRequest("POST", "/timeslots", body, staffToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Message)

	resp = makeRequest("POST", "/timeslots", body, staffToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, resp.GetString("message"), "already exist")
}

func TestPatientRegistrationValidation(t *testing.T) {
	requireServer(t)

	resp := makeRequest("POST", "/patients/register", map[string]string{
		"last_name": "Tanaka",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// availableSlot mirrors the fields the booking flow needs from the
// day listing.
type availableSlot struct {
	ID              string `json:"id"`
	IsAvailable     bool   `json:"is_available"`
	MaxPatients     int    `json:"max_patients"`
	CurrentPatients int    `json:"current_patients"`
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	requireStaff(t)
	requirePatient(t)

	// Slots far enough out that the run does not collide with real
	// bookings, and a fresh untouched slot to hammer.
	date := time.Now().AddDate(0, 6, 0).Format("2006-01-02")
	resp := makeRequest("POST", "/timeslots", map[string]interface{}{"date": date, "is_open": true}, staffToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Message)

	resp = makeRequest("GET", fmt.Sprintf("/reservations?date=%s&is_first_visit=false", date), nil, patientToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Message)

	var slots []availableSlot
	require.NoError(t, json.Unmarshal([]byte(resp.RawData), &slots))

	var target string
	for _, s := range slots {
		if s.IsAvailable && s.CurrentPatients == 0 {
			target = s.ID
			break
		}
	}
	require.NotEmpty(t, target, "no untouched slot on %s", date)

	// One patient, one seat per slot: of N simultaneous requests
	// exactly one may land, the rest must lose the row lock race.
	const attempts = 8
	results := make(chan TestResponse, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- makeRequest("POST", "/reservations",
				map[string]interface{}{"time_slot_id": target, "is_first_visit": false}, patientToken)
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	var reservationID string
	for r := range results {
		if r.StatusCode == http.StatusCreated {
			wins++
			reservationID = r.GetString("id")
		} else {
			assert.GreaterOrEqual(t, r.StatusCode, 400, "losers must fail cleanly: %s", r.Message)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent booking may succeed")

	if reservationID != "" {
		resp = makeRequest("DELETE", "/reservations?id="+reservationID, nil, patientToken)
		assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Message)
	}
}

func TestVisitStatusValidation(t *testing.T) {
	requireStaff(t)

	// Unknown status must be rejected before any lookup happens.
	resp := makeRequest("PATCH", "/reservations/00000000-0000-0000-0000-000000000000",
		map[string]string{"visit_status": "ARRIVED"}, staffToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
