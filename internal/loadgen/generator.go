package loadgen

import (
	"fmt"
	"math/rand"
)

// generate builds Reports distinct reporters for every target plus Repeats
// resubmissions by reporters already used, in shuffled order.
func generate(cfg *Config, runID string) []Submission {
	subs := make([]Submission, 0, cfg.Targets*(cfg.Reports+cfg.Repeats))
	for t := 0; t < cfg.Targets; t++ {
		target := fmt.Sprintf("%s-%s-%04d", cfg.Kind, runID, t)
		for r := 0; r < cfg.Reports; r++ {
			subs = append(subs, Submission{
				Reporter: fmt.Sprintf("reporter-%s-%04d", runID, r),
				Kind:     cfg.Kind,
				TargetID: target,
				Reason:   "load test",
			})
		}
		for r := 0; r < cfg.Repeats; r++ {
			subs = append(subs, Submission{
				Reporter: fmt.Sprintf("reporter-%s-%04d", runID, r%cfg.Reports),
				Kind:     cfg.Kind,
				TargetID: target,
				Reason:   "load test",
			})
		}
	}
	rand.Shuffle(len(subs), func(i, j int) { subs[i], subs[j] = subs[j], subs[i] })
	return subs
}

// expectedFlags is the number of targets that must end up under review.
func expectedFlags(cfg *Config) int64 {
	if cfg.Threshold <= 0 || int64(cfg.Reports) < cfg.Threshold {
		return 0
	}
	return int64(cfg.Targets)
}
