package controllers

import (
	"context"
	"fmt"
	pdV1 "pagediff/api/v1"
	"pagediff/internal/batch"
	"pagediff/internal/capture"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/storage"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	"golang.org/x/xerrors"
	batchV1 "k8s.io/api/batch/v1"
	coreV1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextRun returns when the comparison is due next. A resource that never
// ran is due at the first schedule tick of the last minute.
func nextRun(schedule cron.Schedule, last *metaV1.Time, now time.Time) time.Time {
	if last == nil {
		return schedule.Next(now.Add(-1 * time.Minute))
	}
	return schedule.Next(last.Time)
}

type ScheduledComparisonReconciler struct {
	client.Client
	Log      logr.Logger
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Capturer capture.Capturer
	Storage  storage.Storage

	Distributed             bool
	DistributedCallbackHost string
	DistributedWorkerImage  string
}

func (r *ScheduledComparisonReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	scheduled := &pdV1.ScheduledComparison{}
	if err := r.Get(ctx, req.NamespacedName, scheduled); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	if r.Distributed {
		if err := r.createOrUpdateCronJob(ctx, scheduled); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{}, nil
	}

	schedule, err := scheduleParser.Parse(scheduled.Spec.Schedule)
	if err != nil {
		r.Recorder.Eventf(scheduled, coreV1.EventTypeWarning, "InvalidSchedule", "Invalid schedule %q: %s", scheduled.Spec.Schedule, err)
		return ctrl.Result{}, nil
	}

	now := time.Now()
	if due := nextRun(schedule, scheduled.Status.LastComparisonTime, now); now.Before(due) {
		return ctrl.Result{RequeueAfter: due.Sub(now)}, nil
	}

	if err := r.processComparison(ctx, scheduled); err != nil {
		r.Recorder.Eventf(scheduled, coreV1.EventTypeWarning, "ComparisonFailed", "Scheduled comparison failed: %s", err)
		return ctrl.Result{}, err
	}

	return ctrl.Result{RequeueAfter: schedule.Next(now).Sub(now)}, nil
}

// processComparison captures the target and compares it with the capture of
// the previous run, which becomes the new baseline.
func (r *ScheduledComparisonReconciler) processComparison(ctx context.Context, scheduled *pdV1.ScheduledComparison) error {
	options, err := diffOptionsOf(scheduled.Spec.ComparisonOptions)
	if err != nil {
		return xerrors.Errorf("invalid comparison options: %w", err)
	}

	pair := pairOf(scheduled.Spec.Target, scheduled.Spec.Target, scheduled.Spec.ComparisonOptions)
	result, err := r.Capturer.Capture(ctx, pair.Target, capture.CaptureOptions{
		Width:         pair.Width,
		Height:        pair.Height,
		Actions:       pair.Actions,
		MaskSelectors: pair.MaskSelectors,
		Headers:       pair.Headers,
	})
	if err != nil {
		return xerrors.Errorf("failed to capture screenshot: %w", err)
	}

	now := time.Now()
	previousURL := scheduled.Status.TargetURL
	status := pdV1.ComparisonResult{BaselineURL: previousURL}

	if previousURL == "" {
		url, err := r.Storage.Put(ctx, storage.ObjectKey("capture", pair.Target, "png", now), result.Screenshot)
		if err != nil {
			return xerrors.Errorf("failed to upload screenshot: %w", err)
		}
		status.TargetURL = url
	} else {
		previous, err := r.Storage.Get(ctx, previousURL)
		if err != nil {
			return xerrors.Errorf("failed to download previous screenshot: %w", err)
		}

		diff, err := diffimage.NewComparator(options).Compare(previous, result.Screenshot)
		if err != nil {
			return xerrors.Errorf("failed to generate diff: %w", err)
		}

		artifacts, err := batch.Upload(ctx, r.Storage, &batch.Outcome{Pair: pair, Target: result.Screenshot, Result: diff}, now)
		if err != nil {
			return xerrors.Errorf("failed to upload artifacts: %w", err)
		}
		status.TargetURL = artifacts.TargetURL
		status.DiffURL = artifacts.DiffURL
		status.PixelCount = diff.PixelCount
		status.TotalPixels = diff.TotalPixels
		status.DiffPercent = diff.DiffPercent
	}

	lastComparisonTime := metaV1.NewTime(now)
	status.LastComparisonTime = &lastComparisonTime
	scheduled.Status.ComparisonResult = status
	if err := r.Status().Update(ctx, scheduled); err != nil {
		return xerrors.Errorf("failed to update scheduled comparison status: %w", err)
	}

	r.Recorder.Eventf(scheduled, coreV1.EventTypeNormal, "ComparisonCompleted", "Scheduled comparison completed: %q differs by %.2f%% from the previous run", scheduled.Name, status.DiffPercent)
	return nil
}

func (r *ScheduledComparisonReconciler) createOrUpdateCronJob(ctx context.Context, scheduled *pdV1.ScheduledComparison) error {
	cronJobName := fmt.Sprintf("comparison-%s", scheduled.Name)

	args, err := workerArgs(
		scheduled.Spec.ComparisonOptions,
		callbackURL(r.DistributedCallbackHost, scheduled.Namespace, "scheduledcomparison", scheduled.Name),
		true,
		scheduled.Spec.Target,
	)
	if err != nil {
		return xerrors.Errorf("failed to build worker arguments: %w", err)
	}

	cronJob := &batchV1.CronJob{
		ObjectMeta: metaV1.ObjectMeta{
			Name:      cronJobName,
			Namespace: scheduled.Namespace,
		},
		Spec: batchV1.CronJobSpec{
			Schedule:          scheduled.Spec.Schedule,
			ConcurrencyPolicy: batchV1.ForbidConcurrent,
			JobTemplate: batchV1.JobTemplateSpec{
				Spec: batchV1.JobSpec{
					Template: coreV1.PodTemplateSpec{
						Spec: workerPodSpec(r.DistributedWorkerImage, args),
					},
				},
			},
		},
	}

	if err := controllerutil.SetControllerReference(scheduled, cronJob, r.Scheme); err != nil {
		return xerrors.Errorf("failed to set controller reference: %w", err)
	}

	existingCronJob := &batchV1.CronJob{}
	err = r.Get(ctx, client.ObjectKey{Name: cronJobName, Namespace: scheduled.Namespace}, existingCronJob)
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return xerrors.Errorf("failed to get existing cronjob: %w", err)
		}
		if err := r.Create(ctx, cronJob); err != nil {
			return xerrors.Errorf("failed to create cronjob: %w", err)
		}
		r.Recorder.Eventf(scheduled, coreV1.EventTypeNormal, "CronJobCreated", "Created CronJob %s", cronJobName)
		return nil
	}

	existingCronJob.Spec = cronJob.Spec
	if err := r.Update(ctx, existingCronJob); err != nil {
		return xerrors.Errorf("failed to update cronjob: %w", err)
	}
	r.Recorder.Eventf(scheduled, coreV1.EventTypeNormal, "CronJobUpdated", "Updated CronJob %s", cronJobName)
	return nil
}

func (r *ScheduledComparisonReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&pdV1.ScheduledComparison{}).
		Owns(&batchV1.CronJob{}).
		WithEventFilter(predicate.GenerationChangedPredicate{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: 1}).
		Complete(r)
}
