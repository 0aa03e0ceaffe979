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

type ComparisonReconciler struct {
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

func (r *ComparisonReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	comparison := &pdV1.Comparison{}
	if err := r.Get(ctx, req.NamespacedName, comparison); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	if comparison.Status.ObservedGeneration >= comparison.Generation {
		return ctrl.Result{}, nil
	}

	comparison.Status.ObservedGeneration = comparison.Generation
	if err := r.Status().Update(ctx, comparison); err != nil {
		return ctrl.Result{}, err
	}

	if r.Distributed {
		if err := r.createJob(ctx, comparison); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{}, nil
	}

	if err := r.processComparison(ctx, comparison); err != nil {
		r.Recorder.Eventf(comparison, coreV1.EventTypeWarning, "ComparisonFailed", "Comparison failed: %s", err)
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, nil
}

func (r *ComparisonReconciler) processComparison(ctx context.Context, comparison *pdV1.Comparison) error {
	options, err := diffOptionsOf(comparison.Spec.ComparisonOptions)
	if err != nil {
		return xerrors.Errorf("invalid comparison options: %w", err)
	}

	runner := &batch.Runner{
		Capturer:   r.Capturer,
		Comparator: diffimage.NewComparator(options),
	}
	outcome, err := runner.RunPair(ctx, pairOf(comparison.Spec.Baseline, comparison.Spec.Target, comparison.Spec.ComparisonOptions))
	if err != nil {
		return xerrors.Errorf("failed to compare %s with %s: %w", comparison.Spec.Baseline, comparison.Spec.Target, err)
	}

	artifacts, err := batch.Upload(ctx, r.Storage, outcome, time.Now())
	if err != nil {
		return xerrors.Errorf("failed to upload artifacts: %w", err)
	}

	now := metaV1.Now()
	comparison.Status.ComparisonResult = pdV1.ComparisonResult{
		BaselineURL:        artifacts.BaselineURL,
		TargetURL:          artifacts.TargetURL,
		DiffURL:            artifacts.DiffURL,
		PixelCount:         outcome.Result.PixelCount,
		TotalPixels:        outcome.Result.TotalPixels,
		DiffPercent:        outcome.Result.DiffPercent,
		LastComparisonTime: &now,
	}
	if err := r.Status().Update(ctx, comparison); err != nil {
		return xerrors.Errorf("failed to update comparison status: %w", err)
	}

	r.Log.Info("comparison completed", "name", comparison.Name, "diffPercent", outcome.Result.DiffPercent, "elapsed", outcome.Elapsed)
	r.Recorder.Eventf(comparison, coreV1.EventTypeNormal, "ComparisonCompleted", "Comparison completed: %q differs by %.2f%% (%d of %d pixels)", comparison.Name, outcome.Result.DiffPercent, outcome.Result.PixelCount, outcome.Result.TotalPixels)
	return nil
}

func (r *ComparisonReconciler) createJob(ctx context.Context, comparison *pdV1.Comparison) error {
	jobName := fmt.Sprintf("comparison-%s-%d", comparison.Name, comparison.Generation)

	args, err := workerArgs(
		comparison.Spec.ComparisonOptions,
		callbackURL(r.DistributedCallbackHost, comparison.Namespace, "comparison", comparison.Name),
		false,
		comparison.Spec.Baseline,
		comparison.Spec.Target,
	)
	if err != nil {
		return xerrors.Errorf("failed to build worker arguments: %w", err)
	}

	job := &batchV1.Job{
		ObjectMeta: metaV1.ObjectMeta{
			Name:      jobName,
			Namespace: comparison.Namespace,
		},
		Spec: batchV1.JobSpec{
			Template: coreV1.PodTemplateSpec{
				Spec: workerPodSpec(r.DistributedWorkerImage, args),
			},
		},
	}

	if err := controllerutil.SetControllerReference(comparison, job, r.Scheme); err != nil {
		return xerrors.Errorf("failed to set controller reference: %w", err)
	}

	if err := r.Create(ctx, job); err != nil {
		if apierrors.IsAlreadyExists(err) {
			r.Log.Info("Job already exists", "job", jobName)
			return nil
		}
		return xerrors.Errorf("failed to create job: %w", err)
	}

	r.Recorder.Eventf(comparison, coreV1.EventTypeNormal, "JobCreated", "Created job %s for comparison", jobName)
	return nil
}

func (r *ComparisonReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&pdV1.Comparison{}).
		Owns(&batchV1.Job{}).
		WithEventFilter(predicate.GenerationChangedPredicate{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: 1}).
		Complete(r)
}
