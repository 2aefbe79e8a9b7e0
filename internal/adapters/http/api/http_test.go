package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/prizeboard/internal/adapters/http/api"
	service "github.com/okian/prizeboard/internal/app"
	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/types"
	"github.com/okian/prizeboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// mockDependencies returns canned results and records calls.
type mockDependencies struct {
	err        error
	enqueueOK  bool
	lastLimit  int
	lastTiers  []model.PrizeTier
	lastAmount float64

	lastContest model.Contest
	lastEntry   model.Entry
	lastScore   float64
	approved    string
	reviewed    string
}

func (m *mockDependencies) Contest(_ context.Context, contestID string) (model.Contest, error) {
	if m.err != nil {
		return model.Contest{}, m.err
	}
	return model.Contest{ID: contestID, Title: "Spring"}, nil
}

func (m *mockDependencies) SaveContest(_ context.Context, c model.Contest) error {
	m.lastContest = c
	return m.err
}

func (m *mockDependencies) Entry(_ context.Context, submissionID string) (model.Entry, error) {
	if m.err != nil {
		return model.Entry{}, m.err
	}
	e := m.lastEntry
	e.SubmissionID = submissionID
	return e, nil
}

func (m *mockDependencies) UpsertEntry(_ context.Context, e model.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.lastEntry = e
	return nil
}

func (m *mockDependencies) UpdateEngagement(_ context.Context, submissionID string, likes, comments, shares, views int64) (model.Entry, error) {
	if m.err != nil {
		return model.Entry{}, m.err
	}
	m.lastEntry = model.Entry{SubmissionID: submissionID, Likes: likes, Comments: comments, Shares: shares, Views: views}
	return m.lastEntry, nil
}

func (m *mockDependencies) ApproveEntry(_ context.Context, submissionID string) error {
	if m.err != nil {
		return m.err
	}
	m.approved = submissionID
	m.lastEntry.Status = model.StatusApproved
	return nil
}

func (m *mockDependencies) SetCreativityScore(_ context.Context, _ string, score float64) error {
	if m.err != nil {
		return m.err
	}
	m.lastScore = score
	m.lastEntry.CreativityScore = model.Float(score)
	return nil
}

func (m *mockDependencies) Leaderboard(_ context.Context, contestID, kind string, limit int) (types.Leaderboard, error) {
	m.lastLimit = limit
	if m.err != nil {
		return types.Leaderboard{}, m.err
	}
	return types.Leaderboard{ContestID: contestID, Kind: kind, Total: 1, Standings: []types.Standing{
		{Rank: 1, ParticipantID: "p1", SubmissionID: "s1", Score: 42},
	}}, nil
}

func (m *mockDependencies) ResolvedTiers(_ context.Context, contestID, kind string) (types.TierSet, error) {
	if m.err != nil {
		return types.TierSet{}, m.err
	}
	return types.TierSet{ContestID: contestID, Kind: kind, TotalPool: 1000}, nil
}

func (m *mockDependencies) PrizeForRank(_ context.Context, contestID, kind string, rank int) (types.RankPrize, error) {
	if m.err != nil {
		return types.RankPrize{}, m.err
	}
	return types.RankPrize{ContestID: contestID, Kind: kind, Rank: rank, Amount: 500}, nil
}

func (m *mockDependencies) ReplacePrizeTiers(_ context.Context, _ string, tiers []model.PrizeTier) ([]model.PrizeTier, error) {
	m.lastTiers = tiers
	if m.err != nil {
		return nil, m.err
	}
	return tiers, nil
}

func (m *mockDependencies) EnqueueSettlement(_ context.Context, _, _ string) (bool, error) {
	return m.enqueueOK, m.err
}

func (m *mockDependencies) EnqueueEnded(_ context.Context, _ string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return 2, nil
}

func (m *mockDependencies) Wallet(_ context.Context, participantID string) (types.Wallet, error) {
	if m.err != nil {
		return types.Wallet{}, m.err
	}
	return types.Wallet{ParticipantID: participantID, Balance: 800}, nil
}

func (m *mockDependencies) RequestPayout(_ context.Context, participantID string, amount float64) (model.Payout, error) {
	m.lastAmount = amount
	if m.err != nil {
		return model.Payout{}, m.err
	}
	return model.Payout{ID: "po1", ParticipantID: participantID, Amount: amount, Status: model.PayoutPending}, nil
}

func (m *mockDependencies) ApprovePayout(_ context.Context, payoutID string) (model.Payout, error) {
	m.reviewed = payoutID
	if m.err != nil {
		return model.Payout{}, m.err
	}
	return model.Payout{ID: payoutID, Status: model.PayoutCompleted, TransactionID: "tx1"}, nil
}

func (m *mockDependencies) RejectPayout(_ context.Context, payoutID string) (model.Payout, error) {
	m.reviewed = payoutID
	if m.err != nil {
		return model.Payout{}, m.err
	}
	return model.Payout{ID: payoutID, Status: model.PayoutRejected}, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}).
		Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{enqueueOK: true}
		mux := newMux(deps)

		Convey("Then health serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "prizeboard_")
		})

		Convey("Then stats are served as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unknown paths return 404", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are refused", func() {
			So(do(mux, http.MethodDelete, "/stats", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given the leaderboard endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When a limit is given", func() {
			w := do(mux, http.MethodGet, "/contests/c1/leaderboards/engagement?limit=5", "")

			Convey("Then standings are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 5)
				var lb types.Leaderboard
				So(json.Unmarshal(w.Body.Bytes(), &lb), ShouldBeNil)
				So(lb.ContestID, ShouldEqual, "c1")
				So(lb.Standings[0].ParticipantID, ShouldEqual, "p1")
			})
		})

		Convey("When no limit is given", func() {
			w := do(mux, http.MethodGet, "/contests/c1/leaderboards/engagement", "")

			Convey("Then the service default applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 0)
			})
		})

		Convey("When the limit is invalid", func() {
			w := do(mux, http.MethodGet, "/contests/c1/leaderboards/engagement?limit=-1", "")

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})
		})

		Convey("When the kind is unknown", func() {
			deps.err = fmt.Errorf("parse: %w", service.ErrUnknownKind)
			w := do(mux, http.MethodGet, "/contests/c1/leaderboards/popularity", "")

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the contest does not exist", func() {
			deps.err = service.ErrNotFound
			w := do(mux, http.MethodGet, "/contests/nope/leaderboards/engagement", "")

			Convey("Then it should return 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})
		})
	})
}

func TestTiersHandler(t *testing.T) {
	Convey("Given the prize tier endpoints", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When tiers are read", func() {
			w := do(mux, http.MethodGet, "/contests/c1/prize-tiers/engagement", "")

			Convey("Then the resolved set is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"total_pool":1000`)
			})
		})

		Convey("When a rank prize is read", func() {
			w := do(mux, http.MethodGet, "/contests/c1/prize-tiers/engagement/ranks/1", "")

			Convey("Then the prize is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"amount":500`)
			})
		})

		Convey("When a rank has no prize", func() {
			deps.err = service.ErrNoPrize
			w := do(mux, http.MethodGet, "/contests/c1/prize-tiers/engagement/ranks/15", "")

			Convey("Then it should return 404 no_prize", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "no_prize")
			})
		})

		Convey("When the rank is not a number", func() {
			w := do(mux, http.MethodGet, "/contests/c1/prize-tiers/engagement/ranks/first", "")

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When tiers are replaced", func() {
			body := `{"tiers":[
				{"leaderboard_kind":"Engagement","label":"1st Place","rank_min":1,"rank_max":1,"amount":500},
				{"leaderboard_kind":"engagement","label":"Top 10","amount":50}
			]}`
			w := do(mux, http.MethodPut, "/contests/c1/prize-tiers", body)

			Convey("Then kinds are normalised and the tiers stored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(deps.lastTiers), ShouldEqual, 2)
				So(deps.lastTiers[0].Kind, ShouldEqual, model.Engagement)
				So(deps.lastTiers[1].Label, ShouldEqual, "Top 10")
			})
		})

		Convey("When a tier names an unknown kind", func() {
			w := do(mux, http.MethodPut, "/contests/c1/prize-tiers", `{"tiers":[{"leaderboard_kind":"views","label":"x"}]}`)

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When tiers collide", func() {
			deps.err = fmt.Errorf("%w: overlap", service.ErrTierConflict)
			w := do(mux, http.MethodPut, "/contests/c1/prize-tiers", `{"tiers":[]}`)

			Convey("Then it should return 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "tier_conflict")
			})
		})

		Convey("When the body is malformed", func() {
			w := do(mux, http.MethodPut, "/contests/c1/prize-tiers", `{`)

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSettlementsHandler(t *testing.T) {
	Convey("Given the settlements endpoint", t, func() {
		deps := &mockDependencies{enqueueOK: true}
		mux := newMux(deps)

		Convey("When posted without a body", func() {
			w := do(mux, http.MethodPost, "/settlements", "")

			Convey("Then every ended contest is queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"queued":2`)
			})
		})

		Convey("When posted for one contest", func() {
			w := do(mux, http.MethodPost, "/settlements", `{"contest_id":"c1"}`)

			Convey("Then it is queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"queued":1`)
			})
		})

		Convey("When the contest is already in flight", func() {
			deps.enqueueOK = false
			w := do(mux, http.MethodPost, "/settlements", `{"contest_id":"c1"}`)

			Convey("Then it is acknowledged without queuing", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"in_flight"`)
			})
		})

		Convey("When the queue is full", func() {
			deps.err = fmt.Errorf("%w: contest c1", service.ErrQueueFull)
			w := do(mux, http.MethodPost, "/settlements", `{"contest_id":"c1"}`)

			Convey("Then it should return 429", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(w), ShouldEqual, "backpressure")
			})
		})

		Convey("When the service is not running", func() {
			deps.err = service.ErrNotStarted
			w := do(mux, http.MethodPost, "/settlements", "")

			Convey("Then it should return 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestContestsHandler(t *testing.T) {
	Convey("Given the contest and entry endpoints", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When a contest is saved", func() {
			w := do(mux, http.MethodPut, "/contests/c1", `{"title":"Spring","brand":"Acme","deadline":"2026-05-01T02:00:00+02:00","engagement_pool":1000}`)

			Convey("Then it is stored under the path id in UTC", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastContest.ID, ShouldEqual, "c1")
				So(deps.lastContest.Brand, ShouldEqual, "Acme")
				So(deps.lastContest.Deadline.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(deps.lastContest.Deadline.Location(), ShouldEqual, time.UTC)
				So(deps.lastContest.EngagementPool, ShouldEqual, 1000)
			})
		})

		Convey("When a contest is read", func() {
			w := do(mux, http.MethodGet, "/contests/c1", "")

			Convey("Then it is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"title":"Spring"`)
			})
		})

		Convey("When a contest body is malformed", func() {
			w := do(mux, http.MethodPut, "/contests/c1", `{"deadline":"tomorrow"}`)

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an entry is upserted without status or creativity score", func() {
			w := do(mux, http.MethodPut, "/contests/c1/entries/s1", `{"participant_id":"p1","likes":10,"comments":2}`)

			Convey("Then the unset fields are passed through empty", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastEntry.ContestID, ShouldEqual, "c1")
				So(deps.lastEntry.SubmissionID, ShouldEqual, "s1")
				So(deps.lastEntry.Status, ShouldEqual, model.EntryStatus(""))
				So(deps.lastEntry.CreativityScore, ShouldBeNil)
				So(deps.lastEntry.Likes, ShouldEqual, 10)
			})
		})

		Convey("When an entry names an unknown status", func() {
			w := do(mux, http.MethodPut, "/contests/c1/entries/s1", `{"participant_id":"p1","status":"winner"}`)

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})
		})

		Convey("When an entry is moved to another contest", func() {
			deps.err = fmt.Errorf("%w: %w", service.ErrInvalidInput, service.ErrEntryMoved)
			w := do(mux, http.MethodPut, "/contests/c2/entries/s1", `{"participant_id":"p1"}`)

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When engagement counters are patched", func() {
			w := do(mux, http.MethodPatch, "/entries/s1/engagement", `{"likes":5,"comments":1,"shares":1,"views":80}`)

			Convey("Then the counters reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastEntry.Views, ShouldEqual, 80)
				So(w.Body.String(), ShouldContainSubstring, `"likes":5`)
			})
		})

		Convey("When an entry is approved", func() {
			w := do(mux, http.MethodPost, "/entries/s1/approve", "")

			Convey("Then the approved entry is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.approved, ShouldEqual, "s1")
				So(w.Body.String(), ShouldContainSubstring, `"status":"approved"`)
			})
		})

		Convey("When a creativity score is set", func() {
			w := do(mux, http.MethodPut, "/entries/s1/creativity-score", `{"score":8.5}`)

			Convey("Then the score is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastScore, ShouldEqual, 8.5)
				So(w.Body.String(), ShouldContainSubstring, `"creativity_score":8.5`)
			})
		})

		Convey("When a creativity score is missing", func() {
			w := do(mux, http.MethodPut, "/entries/s1/creativity-score", `{}`)

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an unknown entry is approved", func() {
			deps.err = service.ErrNotFound
			w := do(mux, http.MethodPost, "/entries/s9/approve", "")

			Convey("Then it should return 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})
		})
	})
}

func TestWalletsHandler(t *testing.T) {
	Convey("Given the wallet endpoints", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When a wallet is read", func() {
			w := do(mux, http.MethodGet, "/wallets/p1", "")

			Convey("Then the balance is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"balance":800`)
			})
		})

		Convey("When a payout is requested", func() {
			w := do(mux, http.MethodPost, "/wallets/p1/payouts", `{"amount":120.5}`)

			Convey("Then the pending payout is returned", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.lastAmount, ShouldEqual, 120.5)
				So(w.Body.String(), ShouldContainSubstring, `"status":"pending"`)
			})
		})

		Convey("When a payout is approved", func() {
			w := do(mux, http.MethodPost, "/payouts/po7/approve", "")

			Convey("Then the completed payout is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.reviewed, ShouldEqual, "po7")
				So(w.Body.String(), ShouldContainSubstring, `"status":"completed"`)
				So(w.Body.String(), ShouldContainSubstring, `"transaction_id":"tx1"`)
			})
		})

		Convey("When a payout is rejected", func() {
			w := do(mux, http.MethodPost, "/payouts/po7/reject", "")

			Convey("Then the rejected payout is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.reviewed, ShouldEqual, "po7")
				So(w.Body.String(), ShouldContainSubstring, `"status":"rejected"`)
			})
		})

		Convey("When a payout was already reviewed", func() {
			deps.err = fmt.Errorf("payout po7 is completed: %w", service.ErrPayoutProcessed)
			w := do(mux, http.MethodPost, "/payouts/po7/reject", "")

			Convey("Then it should return 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "payout_processed")
			})
		})

		Convey("When an unknown payout is approved", func() {
			deps.err = service.ErrNotFound
			w := do(mux, http.MethodPost, "/payouts/nope/approve", "")

			Convey("Then it should return 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the balance is too low", func() {
			deps.err = service.ErrInsufficientFunds
			w := do(mux, http.MethodPost, "/wallets/p1/payouts", `{"amount":5000}`)

			Convey("Then it should return 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "insufficient_funds")
			})
		})

		Convey("When the amount is invalid", func() {
			deps.err = service.ErrInvalidAmount
			w := do(mux, http.MethodPost, "/wallets/p1/payouts", `{"amount":-1}`)

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an unexpected error occurs", func() {
			deps.err = errors.New("disk on fire")
			w := do(mux, http.MethodGet, "/wallets/p1", "")

			Convey("Then it should return 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(errorCode(w), ShouldEqual, "internal_error")
			})
		})
	})
}

func TestAPI_ContestAdmin(t *testing.T) {
	Convey("Given the API backed by a service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithClock(func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }))
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)

		Convey("When a contest and entry are managed over HTTP", func() {
			w := do(mux, http.MethodPut, "/contests/c1", `{"title":"Spring","deadline":"2026-05-01T00:00:00Z"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			w = do(mux, http.MethodPut, "/contests/c1/entries/s1", `{"participant_id":"p1","likes":5}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			w = do(mux, http.MethodPost, "/entries/s1/approve", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			w = do(mux, http.MethodPut, "/entries/s1/creativity-score", `{"score":9}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			w = do(mux, http.MethodPut, "/contests/c1/entries/s1", `{"participant_id":"p1","likes":50}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then a counter refresh keeps moderation and judging", func() {
				var e model.Entry
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.Status, ShouldEqual, model.StatusApproved)
				So(*e.CreativityScore, ShouldEqual, 9)
				So(*e.EngagementScore, ShouldEqual, 50)

				w := do(mux, http.MethodGet, "/contests/c1/leaderboards/creativity", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var lb types.Leaderboard
				So(json.Unmarshal(w.Body.Bytes(), &lb), ShouldBeNil)
				So(lb.Total, ShouldEqual, 1)
			})

			Convey("Then the submission cannot move to another contest", func() {
				w := do(mux, http.MethodPut, "/contests/c2", `{"title":"Summer","deadline":"2026-07-01T00:00:00Z"}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				w = do(mux, http.MethodPut, "/contests/c2/entries/s1", `{"participant_id":"p1"}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				w = do(mux, http.MethodGet, "/entries/s1", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"contest_id":"c1"`)
			})
		})
	})
}

func TestAPI_WithService(t *testing.T) {
	Convey("Given the API backed by a running service", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		svc := service.New(service.WithWorkerCount(2), service.WithClock(func() time.Time { return now }))
		So(svc.SaveContest(ctx, model.Contest{ID: "c1", Deadline: now.Add(-time.Hour)}), ShouldBeNil)
		for i, likes := range []int64{30, 20, 10} {
			sub := fmt.Sprintf("s%d", i+1)
			So(svc.UpsertEntry(ctx, model.Entry{
				SubmissionID: sub, ParticipantID: fmt.Sprintf("p%d", i+1), ContestID: "c1", Likes: likes,
			}), ShouldBeNil)
			So(svc.ApproveEntry(ctx, sub), ShouldBeNil)
		}
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)

		Convey("When tiers are configured, settled and paid out", func() {
			w := do(mux, http.MethodPut, "/contests/c1/prize-tiers", `{"tiers":[
				{"leaderboard_kind":"engagement","label":"1st Place","rank_min":1,"rank_max":1,"amount":500},
				{"leaderboard_kind":"engagement","label":"Top 2","amount":100}
			]}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			w = do(mux, http.MethodPut, "/contests/c1/prize-tiers", `{"tiers":[
				{"leaderboard_kind":"engagement","label":"1st Place","rank_min":1,"rank_max":1,"amount":500},
				{"leaderboard_kind":"engagement","label":"Podium","rank_min":1,"rank_max":3,"amount":100}
			]}`)
			So(w.Code, ShouldEqual, http.StatusConflict)

			w = do(mux, http.MethodGet, "/contests/c1/prize-tiers/engagement/ranks/3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			w = do(mux, http.MethodGet, "/contests/c1/prize-tiers/engagement/ranks/4", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)

			w = do(mux, http.MethodPost, "/settlements", `{"contest_id":"c1"}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)

			var wallet types.Wallet
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				w = do(mux, http.MethodGet, "/wallets/p3", "")
				_ = json.Unmarshal(w.Body.Bytes(), &wallet)
				if wallet.Balance == 100 {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			Convey("Then each endpoint reflects the settled ledger", func() {
				So(wallet.Balance, ShouldEqual, 100)

				w := do(mux, http.MethodPost, "/wallets/p3/payouts", `{"amount":60}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
				var payout model.Payout
				So(json.Unmarshal(w.Body.Bytes(), &payout), ShouldBeNil)
				So(payout.Status, ShouldEqual, model.PayoutPending)

				w = do(mux, http.MethodPost, "/wallets/p3/payouts", `{"amount":60}`)
				So(w.Code, ShouldEqual, http.StatusConflict)

				w = do(mux, http.MethodPost, "/payouts/"+payout.ID+"/approve", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				w = do(mux, http.MethodPost, "/payouts/"+payout.ID+"/reject", "")
				So(w.Code, ShouldEqual, http.StatusConflict)

				w = do(mux, http.MethodGet, "/wallets/p3", "")
				So(json.Unmarshal(w.Body.Bytes(), &wallet), ShouldBeNil)
				So(wallet.Balance, ShouldEqual, 40)
				So(wallet.Available, ShouldEqual, 40)
				So(wallet.Payouts, ShouldHaveLength, 1)

				w = do(mux, http.MethodGet, "/contests/c1/leaderboards/engagement?limit=2", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var lb types.Leaderboard
				So(json.Unmarshal(w.Body.Bytes(), &lb), ShouldBeNil)
				So(lb.Total, ShouldEqual, 3)
				So(len(lb.Standings), ShouldEqual, 2)
				So(*lb.Standings[0].Prize, ShouldEqual, 500)
			})
		})
	})
}
