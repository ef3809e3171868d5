package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/qazmun/mun/apps/api/echo"
	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/assignment"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/news"
	"github.com/qazmun/mun/core/registration"
	"github.com/qazmun/mun/core/user"
	blobsvc "github.com/qazmun/mun/services/blob"
	emailsvc "github.com/qazmun/mun/services/email"
	logsvc "github.com/qazmun/mun/services/logger"
	metricsvc "github.com/qazmun/mun/services/metrics"
	inmemdb "github.com/qazmun/mun/storage/database/inmem"
	"github.com/qazmun/mun/testutil"
)

const mediaBaseURL = "http://localhost/media"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app   *Server
	users user.Repository
	confs conference.Repository
	apps  application.Repository
	mail  *emailsvc.ConsoleServiceMock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := inmemdb.Open()
	validate, translator := testutil.NewValidator()
	logger := logsvc.NewTest(t)
	conf := testutil.Config()
	metrics := metricsvc.New()
	blobs, err := blobsvc.NewLocalStore(t.TempDir(), mediaBaseURL)
	require.NoError(t, err)

	e := &testEnv{
		users: inmemdb.NewUserRepository(db),
		confs: inmemdb.NewConferenceRepository(db),
		apps:  inmemdb.NewApplicationRepository(db),
		mail:  testutil.MailService(t),
	}
	newsSvc := news.NewService(inmemdb.NewNewsRepository(db))
	confSvc := conference.NewService(e.confs, nil, newsSvc, validate, logger)

	e.app = NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		Metrics:         metrics,
		MediaDir:        blobs.Dir(),
		UserSvc:         user.NewService(e.users, blobs, validate, conf, logger),
		ConferenceSvc:   confSvc,
		ApplicationSvc:  application.NewService(e.apps, confSvc, e.mail, validate),
		AssignmentSvc:   assignment.NewService(e.apps, confSvc, e.mail, metrics, logger),
		NewsSvc:         newsSvc,
		RegistrationSvc: registration.NewService(inmemdb.NewRegistrationRepository(db), validate),
	})
	return e
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (e *testEnv) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			e.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(testutil.Config(), usr)
	require.NoError(t, err)
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	require.NoError(t, err)
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
