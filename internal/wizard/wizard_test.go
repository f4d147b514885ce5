package wizard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizcard/internal/domain"
)

type fakeSubmitter struct {
	calls   atomic.Int32
	card    domain.BusinessCard
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSubmitter) Submit(ctx context.Context, _ Draft) (domain.BusinessCard, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return domain.BusinessCard{}, &SubmissionError{Kind: KindCanceled, Message: msgCanceled, Err: ctx.Err()}
		}
	}
	if f.err != nil {
		return domain.BusinessCard{}, f.err
	}
	return f.card, nil
}

func fillValidUserDetails(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.Update(func(d *Draft) {
		d.Name = "Jane Doe"
		d.Title = "Engineer"
	}))
}

func TestNewWizardDefaults(t *testing.T) {
	w := New(&fakeSubmitter{})
	d := w.Draft()

	assert.Equal(t, PhaseUserDetails, w.Phase())
	assert.Equal(t, 0, w.Step())
	assert.Equal(t, domain.DefaultColor, d.Color)
	assert.Equal(t, "modern", d.Template)
	assert.Equal(t, StatusNone, w.Status().Kind)
}

func TestNextStepBlockedWithoutNameOrTitle(t *testing.T) {
	drafts := []Draft{
		{Name: "", Title: "Manager"},
		{Name: "Jane", Title: ""},
		{Name: "   ", Title: "   "},
		{Name: "Jane", Title: "Eng", Email: "not-an-email"},
	}
	for _, draft := range drafts {
		w := New(&fakeSubmitter{})
		require.NoError(t, w.Update(func(d *Draft) {
			d.Name, d.Title, d.Email = draft.Name, draft.Title, draft.Email
		}))

		advanced, err := w.GoToNextStep()
		require.NoError(t, err)
		assert.False(t, advanced)
		assert.Equal(t, 0, w.Step())
		assert.Equal(t, StatusError, w.Status().Kind)
	}
}

func TestScenarioEmptyNameStaysOnFirstStep(t *testing.T) {
	w := New(&fakeSubmitter{})
	require.NoError(t, w.Update(func(d *Draft) { d.Title = "Manager" }))

	advanced, err := w.GoToNextStep()
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, PhaseUserDetails, w.Phase())
	assert.Equal(t, Status{Kind: StatusError, Text: "Name is required"}, w.Status())
}

func TestAdvanceAndRetreatRoundTrip(t *testing.T) {
	w := New(&fakeSubmitter{})
	fillValidUserDetails(t, w)
	before := w.Draft()

	advanced, err := w.GoToNextStep()
	require.NoError(t, err)
	require.True(t, advanced)
	assert.Equal(t, PhaseAppearance, w.Phase())

	back, err := w.GoToPrevStep()
	require.NoError(t, err)
	assert.True(t, back)
	assert.Equal(t, 0, w.Step())
	assert.Equal(t, before, w.Draft())

	// Retroceder desde 0 se queda en 0.
	back, err = w.GoToPrevStep()
	require.NoError(t, err)
	assert.False(t, back)
	assert.Equal(t, 0, w.Step())
}

func TestNextStepClearsStatus(t *testing.T) {
	w := New(&fakeSubmitter{})
	_, _ = w.GoToNextStep()
	require.Equal(t, StatusError, w.Status().Kind)

	fillValidUserDetails(t, w)
	advanced, err := w.GoToNextStep()
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, StatusNone, w.Status().Kind)
}

func TestReviewIsLastStep(t *testing.T) {
	w := New(&fakeSubmitter{})
	fillValidUserDetails(t, w)
	_, _ = w.GoToNextStep()
	_, _ = w.GoToNextStep()
	require.Equal(t, PhaseReview, w.Phase())

	advanced, err := w.GoToNextStep()
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, StepReview, w.Step())
}

func TestValidateStep(t *testing.T) {
	w := New(&fakeSubmitter{})
	var vErr *ValidationError
	require.ErrorAs(t, w.ValidateStep(StepUserDetails), &vErr)
	assert.Equal(t, "name", vErr.Field)

	assert.NoError(t, w.ValidateStep(StepAppearance))
	assert.NoError(t, w.ValidateStep(StepReview))

	require.NoError(t, w.Update(func(d *Draft) { d.Color = "purple" }))
	require.ErrorAs(t, w.ValidateStep(StepAppearance), &vErr)
	assert.Equal(t, "color", vErr.Field)
}

func TestSubmitNeverCallsNetworkWhenInvalid(t *testing.T) {
	sub := &fakeSubmitter{}
	w := New(sub)
	fillValidUserDetails(t, w)
	_, _ = w.GoToNextStep()
	_, _ = w.GoToNextStep()

	// Editar un paso anterior no invalida lo ya validado hasta el envío.
	require.NoError(t, w.Update(func(d *Draft) { d.Name = "" }))
	assert.Equal(t, StepReview, w.Step())

	_, err := w.Submit(context.Background())
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, int32(0), sub.calls.Load())
	assert.Equal(t, PhaseReview, w.Phase())
	assert.Equal(t, StatusError, w.Status().Kind)
}

func TestSubmitSuccessTransitionsToCreated(t *testing.T) {
	sub := &fakeSubmitter{card: domain.BusinessCard{ID: "c1", Name: "Jane Doe", QRCode: "http://x/card/c1"}}
	w := New(sub)
	fillValidUserDetails(t, w)

	card, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c1", card.ID)
	assert.Equal(t, PhaseCreated, w.Phase())
	assert.Equal(t, StatusSuccess, w.Status().Kind)

	created, ok := w.Created()
	require.True(t, ok)
	assert.Equal(t, "c1", created.ID)
	assert.Equal(t, "http://x/card/c1", w.Preview().ShareURL)

	err = w.Update(func(d *Draft) { d.Name = "x" })
	assert.ErrorIs(t, err, ErrAlreadyCreated)
}

func TestSubmitFailureKeepsDraftAndAllowsRetry(t *testing.T) {
	sub := &fakeSubmitter{err: &SubmissionError{Kind: KindDuplicateName, Message: `you already have a card named "Jane Doe"`}}
	w := New(sub)
	fillValidUserDetails(t, w)

	_, err := w.Submit(context.Background())
	assert.Equal(t, KindDuplicateName, KindOf(err))
	assert.Equal(t, PhaseFailed, w.Phase())
	assert.Equal(t, StepReview, w.Step())
	assert.Equal(t, `you already have a card named "Jane Doe"`, w.Status().Text)
	assert.Equal(t, "Jane Doe", w.Draft().Name)
	_, ok := w.Created()
	assert.False(t, ok)

	sub.err = nil
	sub.card = domain.BusinessCard{ID: "c2"}
	require.NoError(t, w.Update(func(d *Draft) { d.Name = "Jane Doe 2" }))
	card, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c2", card.ID)
	assert.Equal(t, int32(2), sub.calls.Load())
}

func TestMutationsRejectedWhileSubmitting(t *testing.T) {
	sub := &fakeSubmitter{block: make(chan struct{}), started: make(chan struct{}), card: domain.BusinessCard{ID: "c1"}}
	w := New(sub)
	fillValidUserDetails(t, w)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = w.Submit(context.Background())
	}()
	<-sub.started

	assert.True(t, w.IsSubmitting())
	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = w.GoToNextStep()
	assert.ErrorIs(t, err, ErrBusy)
	_, err = w.GoToPrevStep()
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, w.Update(func(*Draft) {}), ErrBusy)

	close(sub.block)
	wg.Wait()
	assert.Equal(t, int32(1), sub.calls.Load())
	assert.Equal(t, PhaseCreated, w.Phase())
}

func TestResetDiscardsInFlightResult(t *testing.T) {
	sub := &fakeSubmitter{block: make(chan struct{}), started: make(chan struct{}), card: domain.BusinessCard{ID: "c1"}}
	w := New(sub)
	fillValidUserDetails(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	<-sub.started

	w.Reset()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "submit did not return after reset")
	}
	assert.Equal(t, PhaseUserDetails, w.Phase())
	assert.Equal(t, NewDraft(), w.Draft())
	_, ok := w.Created()
	assert.False(t, ok)
}

func TestResetAfterCreated(t *testing.T) {
	w := New(&fakeSubmitter{card: domain.BusinessCard{ID: "c1"}})
	fillValidUserDetails(t, w)
	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	w.Reset()
	assert.Equal(t, PhaseUserDetails, w.Phase())
	assert.Equal(t, 0, w.Step())
	_, ok := w.Created()
	assert.False(t, ok)
}

func TestCloseAbortsAndRejects(t *testing.T) {
	sub := &fakeSubmitter{block: make(chan struct{}), started: make(chan struct{})}
	w := New(sub)
	fillValidUserDetails(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	<-sub.started
	w.Close()

	err := <-done
	assert.True(t, errors.Is(err, ErrStale))
	assert.ErrorIs(t, w.Update(func(*Draft) {}), ErrClosed)
}

func TestPreviewReflectsDraft(t *testing.T) {
	w := New(&fakeSubmitter{})
	require.NoError(t, w.Update(func(d *Draft) {
		d.Name = "Jane Doe"
		d.Template = "minimalist"
		d.Color = "#ffffff"
	}))
	vm := w.Preview()
	assert.Equal(t, "JD", vm.Initials)
	assert.Equal(t, "plain", string(vm.Layout))
	assert.Empty(t, vm.ShareURL)
}
