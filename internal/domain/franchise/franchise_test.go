package franchise_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/ehb/internal/domain/franchise"
	"github.com/okian/ehb/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEvaluator_Evaluate(t *testing.T) {
	Convey("Given an evaluator with default rules", t, func() {
		ev := franchise.NewEvaluator(franchise.DefaultRules())

		Convey("When the wallet is just below the minimum balance", func() {
			out, err := ev.Evaluate(franchise.Input{WalletBalance: 999})

			Convey("Then earnings should be reduced", func() {
				So(err, ShouldBeNil)
				So(out.EarningRatio, ShouldEqual, 0.3)
				So(out.ValidatorEligible, ShouldBeFalse)
				So(out.LoyaltyBonusPercent, ShouldEqual, 0)
			})
		})

		Convey("When the wallet holds exactly the minimum balance", func() {
			out, err := ev.Evaluate(franchise.Input{WalletBalance: 1000})
			So(err, ShouldBeNil)
			So(out.EarningRatio, ShouldEqual, 1.0)
		})

		Convey("When the wallet holds 5000 locked for 12 months", func() {
			out, err := ev.Evaluate(franchise.Input{WalletBalance: 5000, LockedAmount: 5000, LockDurationMonths: 12})

			Convey("Then it should earn fully with the middle loyalty band", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, franchise.Earnings{
					EarningRatio:        1.0,
					ValidatorEligible:   false,
					LoyaltyBonusPercent: 0.01,
				})
			})
		})

		Convey("When the wallet reaches the validator threshold", func() {
			out, err := ev.Evaluate(franchise.Input{WalletBalance: 10_000, LockedAmount: 10_000, LockDurationMonths: 36})
			So(err, ShouldBeNil)
			So(out.ValidatorEligible, ShouldBeTrue)
			So(out.LoyaltyBonusPercent, ShouldEqual, 0.011)
		})

		Convey("When the lock misses the top band by one unit", func() {
			out, err := ev.Evaluate(franchise.Input{WalletBalance: 20_000, LockedAmount: 9_999, LockDurationMonths: 36})
			So(err, ShouldBeNil)
			So(out.LoyaltyBonusPercent, ShouldEqual, 0.01)
		})

		Convey("When input is malformed", func() {
			cases := []struct {
				field string
				in    franchise.Input
			}{
				{"wallet_balance", franchise.Input{WalletBalance: -1}},
				{"wallet_balance", franchise.Input{WalletBalance: math.NaN()}},
				{"locked_amount", franchise.Input{LockedAmount: -5}},
				{"lock_duration", franchise.Input{LockDurationMonths: -1}},
			}
			for _, tc := range cases {
				_, err := ev.Evaluate(tc.in)
				var fe *types.FieldError
				So(errors.As(err, &fe), ShouldBeTrue)
				So(fe.Field, ShouldEqual, tc.field)
			}
		})
	})

	Convey("Given custom rules", t, func() {
		ev := franchise.NewEvaluator(franchise.Rules{MinBalance: 50, ReducedRatio: 0.5, ValidatorThreshold: 100})
		out, err := ev.Evaluate(franchise.Input{WalletBalance: 75})
		So(err, ShouldBeNil)
		So(out.EarningRatio, ShouldEqual, 1.0)
		So(out.ValidatorEligible, ShouldBeFalse)
		So(ev.Rules().ValidatorThreshold, ShouldEqual, 100)
	})
}
