package stripe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func frozenNow(t *testing.T, at time.Time) {
	t.Helper()
	old := NowFunc
	NowFunc = func() time.Time { return at }
	t.Cleanup(func() { NowFunc = old })
}

func TestVerifySignature_OK(t *testing.T) {
	now := time.Unix(1712000000, 0)
	frozenNow(t, now)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	header := SignPayload(payload, testSecret, now)

	require.NoError(t, VerifySignature(payload, header, testSecret, DefaultTolerance))
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	now := time.Unix(1712000000, 0)
	frozenNow(t, now)

	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, testSecret, now)

	err := VerifySignature([]byte(`{"id":"evt_2"}`), header, testSecret, DefaultTolerance)
	require.ErrorIs(t, err, ErrNoMatch)
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	now := time.Unix(1712000000, 0)
	frozenNow(t, now)

	payload := []byte(`{}`)
	header := SignPayload(payload, "whsec_other", now)

	require.ErrorIs(t, VerifySignature(payload, header, testSecret, DefaultTolerance), ErrNoMatch)
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	now := time.Unix(1712000000, 0)
	frozenNow(t, now)

	payload := []byte(`{}`)
	header := SignPayload(payload, testSecret, now.Add(-10*time.Minute))

	require.ErrorIs(t, VerifySignature(payload, header, testSecret, DefaultTolerance), ErrTooOld)
}

func TestVerifySignature_ZeroToleranceSkipsAgeCheck(t *testing.T) {
	now := time.Unix(1712000000, 0)
	frozenNow(t, now)

	payload := []byte(`{}`)
	header := SignPayload(payload, testSecret, now.Add(-24*time.Hour))

	require.NoError(t, VerifySignature(payload, header, testSecret, 0))
}

func TestVerifySignature_HeaderErrors(t *testing.T) {
	payload := []byte(`{}`)

	require.ErrorIs(t, VerifySignature(payload, "", testSecret, 0), ErrMissingHeader)
	require.ErrorIs(t, VerifySignature(payload, "garbage", testSecret, 0), ErrBadHeader)
	require.ErrorIs(t, VerifySignature(payload, "t=1712000000", testSecret, 0), ErrNoSignature)
	require.ErrorIs(t, VerifySignature(payload, "t=abc,v1=00", testSecret, 0), ErrBadHeader)
}

func TestVerifySignature_SecondCandidateMatches(t *testing.T) {
	now := time.Unix(1712000000, 0)
	frozenNow(t, now)

	payload := []byte(`{"n":1}`)
	good := SignPayload(payload, testSecret, now)
	// prepend a bogus v1; verification must try all candidates
	header := "t=1712000000,v1=deadbeef," + good[len("t=1712000000,"):]

	require.NoError(t, VerifySignature(payload, header, testSecret, DefaultTolerance))
}

func TestParseEvent_PaymentIntent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_42",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_42",
			"amount": 15000,
			"amount_received": 15000,
			"currency": "usd",
			"metadata": {"studentId": "stu-7"}
		}}
	}`)

	ev, err := ParseEvent(payload)
	require.NoError(t, err)
	require.Equal(t, "evt_42", ev.ID)
	require.Equal(t, EventPaymentIntentSucceeded, ev.Type)

	pi, err := ev.PaymentIntent()
	require.NoError(t, err)
	require.Equal(t, "pi_42", pi.ID)
	require.Equal(t, "stu-7", pi.Metadata["studentId"])
	require.EqualValues(t, 15000, pi.SettledAmount())
}

func TestSettledAmount_FallsBackToAmount(t *testing.T) {
	pi := PaymentIntent{Amount: 9900}
	require.EqualValues(t, 9900, pi.SettledAmount())

	pi.AmountReceived = 5000
	require.EqualValues(t, 5000, pi.SettledAmount())
}
