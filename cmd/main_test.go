package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ehb/internal/adapters/http/api"
	app "github.com/okian/ehb/internal/app"
	"github.com/okian/ehb/internal/config"
	"github.com/okian/ehb/internal/domain/tier"
	"github.com/okian/ehb/pkg/logger"
)

const testAddr = "0x52908400098527886E0F7030069857D2E4169EE7"

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useTempDatabase(t *testing.T) {
	t.Setenv("EHB_DATABASE_DSN", filepath.Join(t.TempDir(), "ehb.db")+"?_pragma=busy_timeout(5000)")
}

func TestVersionCommand(t *testing.T) {
	convey.Convey("Given the version command", t, func() {
		out, err := execute("version")

		convey.Convey("Then it prints the build version", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldStartWith, "ehb version "+version)
		})
	})
}

func TestRewardCommand(t *testing.T) {
	convey.Convey("Given the reward command", t, func() {
		convey.Convey("When a complete request is given", func() {
			out, err := execute("reward",
				"--address", strings.ToLower(testAddr),
				"--level", "VIP", "--role", "master", "--years", "3", "--stake", "1000")

			convey.Convey("Then it prints the breakdown with a checksum address", func() {
				convey.So(err, convey.ShouldBeNil)
				var res map[string]interface{}
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res["ValidatorAddress"], convey.ShouldEqual, testAddr)
				convey.So(res["BaseReward"], convey.ShouldEqual, 50.0)
				convey.So(res["FinalRewardWei"], convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When the stake is missing", func() {
			_, err := execute("reward", "--address", testAddr)

			convey.Convey("Then it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestTokenCommand(t *testing.T) {
	convey.Convey("Given the token command", t, func() {
		convey.Convey("When no secret is configured", func() {
			t.Setenv("EHB_AUTH_SECRET", "")
			_, err := execute("token", "--subject", "alice")

			convey.Convey("Then it refuses to issue", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a secret is configured", func() {
			const secret = "0123456789abcdef-secret"
			t.Setenv("EHB_AUTH_SECRET", secret)
			out, err := execute("token", "--subject", "alice", "--level", "High", "--role", "corporate", "--ttl", "1h")

			convey.Convey("Then the token verifies with the same secret", func() {
				convey.So(err, convey.ShouldBeNil)
				sess, err := api.NewAuthenticator([]byte(secret), "").Verify(strings.TrimSpace(out))
				convey.So(err, convey.ShouldBeNil)
				convey.So(sess.Subject, convey.ShouldEqual, "alice")
				convey.So(sess.Level, convey.ShouldEqual, tier.LevelHigh)
				convey.So(sess.Role, convey.ShouldEqual, tier.RoleCorporate)
			})
		})

		convey.Convey("When the level is unknown", func() {
			t.Setenv("EHB_AUTH_SECRET", "0123456789abcdef-secret")
			_, err := execute("token", "--subject", "alice", "--level", "Platinum")

			convey.Convey("Then it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestWalletCommands(t *testing.T) {
	convey.Convey("Given an empty database", t, func() {
		useTempDatabase(t)

		convey.Convey("When a wallet is set and read back", func() {
			_, err := execute("wallet", "set",
				"--address", strings.ToLower(testAddr),
				"--balance", "12000", "--locked", "4000", "--months", "24")
			convey.So(err, convey.ShouldBeNil)

			out, err := execute("wallet", "get", "--address", testAddr)

			convey.Convey("Then the earnings are evaluated", func() {
				convey.So(err, convey.ShouldBeNil)
				var res struct {
					Wallet   map[string]interface{} `json:"wallet"`
					Earnings map[string]interface{} `json:"earnings"`
				}
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.Wallet["address"], convey.ShouldEqual, testAddr)
				convey.So(res.Earnings["earning_ratio"], convey.ShouldEqual, 1.0)
				convey.So(res.Earnings["validator_eligible"], convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an unknown wallet is read", func() {
			_, err := execute("wallet", "get", "--address", testAddr)

			convey.Convey("Then it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestHandlerWiring(t *testing.T) {
	convey.Convey("Given a started service and the root handler", t, func() {
		ctx := context.Background()
		useTempDatabase(t)
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		svc := app.New(serviceOptions(cfg, logger.Nop())...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(func() { _ = svc.Stop(ctx) })
		h := newHandler(cfg, svc, logger.Nop())

		convey.Convey("Then the probes answer", func() {
			for _, path := range []string{"/healthz", "/readyz"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a reward can be calculated end to end", func() {
			body := `{"validator_address":"` + testAddr + `","sql_level":"Basic","staked_amount":100}`
			req := httptest.NewRequest(http.MethodPost, "/v1/rewards/calculate", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("X-RateLimit-Limit"), convey.ShouldEqual, "60")
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		convey.Convey("Then they return when the context ends", func() {
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
