package extract

import "time"

// throttleStride is how many requests go out before the pacer pauses.
// Cost Explorer allows 5 requests per second; blast past that and you get
// throttled hard.
const throttleStride = 5

// pacer spaces out Cost Explorer requests to stay under the API limit.
type pacer struct {
	count int
	sleep func(time.Duration)
}

func newPacer() *pacer {
	return &pacer{sleep: time.Sleep}
}

// wait counts a request and pauses one second every throttleStride calls.
func (p *pacer) wait() {
	p.count++
	if p.count%throttleStride == 0 {
		p.sleep(time.Second)
	}
}
