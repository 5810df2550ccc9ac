package runs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ledger-engine/internal/archive"
	"github.com/congo-pay/ledger-engine/internal/csvio"
	"github.com/congo-pay/ledger-engine/internal/events"
	"github.com/congo-pay/ledger-engine/internal/logging"
	"github.com/congo-pay/ledger-engine/internal/metrics"
)

const sampleInput = "type, client, tx, amount\n" +
	"deposit, 1, 1, 1.0\n" +
	"deposit, 2, 2, 2.0\n" +
	"deposit, 1, 3, 2.0\n" +
	"withdrawal, 1, 4, 1.5\n" +
	"withdrawal, 2, 5, 3.0\n"

type failingArchiver struct{}

func (failingArchiver) Save(context.Context, archive.Run) error {
	return errors.New("archive unavailable")
}

func newTestApp(a archive.Archiver) *fiber.App {
	app := fiber.New()
	h := NewHandler(NewService(a, logging.Discard()))
	app.Post("/runs", h.Create)
	return app
}

func post(t *testing.T, app *fiber.App, body, accept string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/runs", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, mimeTextCSV)
	if accept != "" {
		req.Header.Set(fiber.HeaderAccept, accept)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, payload
}

func TestProcessArchivesReport(t *testing.T) {
	var mem archive.Memory
	svc := NewService(&mem, nil)

	report, err := svc.Process(context.Background(), strings.NewReader(sampleInput))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Applied)
	assert.Equal(t, 1, report.Rejected)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "withdrawal", report.Warnings[0].Kind)
	assert.Equal(t, uint32(5), report.Warnings[0].Tx)

	runs := mem.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Len(t, runs[0].Accounts, 2)
}

func TestProcessFatalInputSkipsArchive(t *testing.T) {
	var mem archive.Memory
	svc := NewService(&mem, nil)

	_, err := svc.Process(context.Background(), strings.NewReader("type,client,tx,amount\ndeposit,1,1,x\n"))

	var parseErr *csvio.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Line)
	assert.Empty(t, mem.Runs())
}

func TestCreateReturnsJSON(t *testing.T) {
	app := newTestApp(nil)

	resp, payload := post(t, app, sampleInput, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(payload))

	var decoded runResponse
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.NotEmpty(t, decoded.RunID)
	assert.Equal(t, 4, decoded.Applied)
	assert.Equal(t, 1, decoded.Rejected)
	assert.Equal(t, []accountResponse{
		{Client: 1, Available: "1.5000", Held: "0.0000", Total: "1.5000"},
		{Client: 2, Available: "2.0000", Held: "0.0000", Total: "2.0000"},
	}, decoded.Accounts)
	require.Len(t, decoded.Warnings, 1)
	assert.Equal(t, "insufficient funds", decoded.Warnings[0].Message)
}

func TestCreateReturnsCSVWhenPreferred(t *testing.T) {
	app := newTestApp(nil)

	resp, payload := post(t, app, sampleInput, mimeTextCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, mimeTextCSV, resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t,
		"client,available,held,total,locked\n"+
			"1,1.5000,0.0000,1.5000,false\n"+
			"2,2.0000,0.0000,2.0000,false\n",
		string(payload))
}

func TestCreateEmptyBodyYieldsEmptyTable(t *testing.T) {
	app := newTestApp(nil)

	resp, payload := post(t, app, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded runResponse
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Empty(t, decoded.Accounts)
	assert.NotNil(t, decoded.Warnings)
}

func TestCreateMalformedInput(t *testing.T) {
	app := newTestApp(nil)

	resp, payload := post(t, app, "type,client,tx,amount\ndeposit,1,1,1.0\nrefund,1,2,1.0\n", "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var decoded struct {
		Error string `json:"error"`
		Line  int    `json:"line"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, 3, decoded.Line)
	assert.NotEmpty(t, decoded.Error)
}

func TestCreateArchiveFailure(t *testing.T) {
	app := newTestApp(failingArchiver{})

	resp, payload := post(t, app, sampleInput, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(payload), "archive unavailable")
}

type recordingPublisher struct {
	events []events.RunCompleted
	err    error
}

func (p *recordingPublisher) PublishRunCompleted(_ context.Context, e events.RunCompleted) error {
	p.events = append(p.events, e)
	return p.err
}

func TestProcessPublishesAndMeasures(t *testing.T) {
	pub := &recordingPublisher{}
	m := metrics.New()
	svc := NewService(nil, nil, WithPublisher(pub), WithMetrics(m))

	input := "type,client,tx,amount\n" +
		"deposit,1,1,5.0\n" +
		"dispute,1,1,\n" +
		"chargeback,1,1,\n" +
		"deposit,1,2,1.0\n"
	report, err := svc.Process(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, report.RunID.String(), ev.RunID)
	assert.Equal(t, 1, ev.Accounts)
	assert.Equal(t, 1, ev.LockedAccounts)
	assert.Equal(t, 3, ev.Applied)
	assert.Equal(t, 1, ev.Rejected)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(metrics.OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordRejections.WithLabelValues("deposit", "account_locked")))
}

func TestProcessPublishFailureDoesNotFailRun(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewService(nil, nil, WithPublisher(pub))

	_, err := svc.Process(context.Background(), strings.NewReader(sampleInput))
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestProcessInvalidInputIsMeasured(t *testing.T) {
	pub := &recordingPublisher{}
	m := metrics.New()
	svc := NewService(nil, nil, WithPublisher(pub), WithMetrics(m))

	_, err := svc.Process(context.Background(), strings.NewReader("type,client,tx,amount\ndeposit,x,1,1.0\n"))
	require.Error(t, err)

	assert.Empty(t, pub.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(metrics.OutcomeInvalidInput)))
}

func TestCreateRejectsExponentAmount(t *testing.T) {
	app := newTestApp(nil)

	resp, payload := post(t, app, "type,client,tx,amount\ndeposit,1,1,1e20000000\ndeposit,1,2,0.0001\n", "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(payload))
	assert.Contains(t, string(payload), `"line":2`)
}
