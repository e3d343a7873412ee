// Package kubernetes implements a zoning.BackendResolver that resolves a
// backend id to a dial address via a Kubernetes Service.
package kubernetes

import (
	"context"
	"fmt"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// BackendIDLabel is the Service label this resolver selects on; each
// simulation server's Service is expected to carry
// splinter-proxy.io/backend-id=<backend_id>.
const BackendIDLabel = "splinter-proxy.io/backend-id"

// Resolver resolves a backend id to a dial address by looking up the
// Kubernetes Service labeled with that backend id in the configured
// namespace, reading its cluster IP and first port.
type Resolver struct {
	clientset *kubernetes.Clientset
	namespace string
}

func NewResolver(clientset *kubernetes.Clientset, namespace string) *Resolver {
	return &Resolver{clientset: clientset, namespace: namespace}
}

func (r *Resolver) Resolve(ctx context.Context, backendID uint64) (string, error) {
	selector := BackendIDLabel + "=" + strconv.FormatUint(backendID, 10)
	list, err := r.clientset.CoreV1().Services(r.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return "", fmt.Errorf("kubernetes: failed to list services for backend %d: %w", backendID, err)
	}
	if len(list.Items) == 0 {
		return "", fmt.Errorf("kubernetes: no service labeled %s found in namespace %q", selector, r.namespace)
	}
	svc := list.Items[0]
	if len(svc.Spec.Ports) == 0 {
		return "", fmt.Errorf("kubernetes: service %s/%s has no ports", r.namespace, svc.Name)
	}
	return serviceAddress(svc), nil
}

func serviceAddress(svc corev1.Service) string {
	port := svc.Spec.Ports[0].Port
	host := svc.Spec.ClusterIP
	if host == "" || host == corev1.ClusterIPNone {
		host = fmt.Sprintf("%s.%s.svc.cluster.local", svc.Name, svc.Namespace)
	}
	return fmt.Sprintf("%s:%d", host, port)
}
