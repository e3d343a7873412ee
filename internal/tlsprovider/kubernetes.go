package tlsprovider

import (
	"context"
	"crypto/tls"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// KubernetesProvider loads a certificate/key pair from a Kubernetes TLS
// Secret (the standard tls.crt/tls.key shape) for the proxy's
// client-facing listener.
type KubernetesProvider struct {
	clientset  *kubernetes.Clientset
	namespace  string
	secretName string
}

func NewKubernetesProvider(clientset *kubernetes.Clientset, namespace, secretName string) *KubernetesProvider {
	return &KubernetesProvider{clientset: clientset, namespace: namespace, secretName: secretName}
}

func (p *KubernetesProvider) GetCertificate(ctx context.Context) (*tls.Certificate, error) {
	secret, err := p.clientset.CoreV1().Secrets(p.namespace).Get(ctx, p.secretName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("tlsprovider: failed to get secret %s/%s: %w", p.namespace, p.secretName, err)
	}

	certBytes, ok := secret.Data[corev1.TLSCertKey]
	if !ok {
		return nil, fmt.Errorf("tlsprovider: secret %s/%s missing %s", p.namespace, p.secretName, corev1.TLSCertKey)
	}
	keyBytes, ok := secret.Data[corev1.TLSPrivateKeyKey]
	if !ok {
		return nil, fmt.Errorf("tlsprovider: secret %s/%s missing %s", p.namespace, p.secretName, corev1.TLSPrivateKeyKey)
	}

	cert, err := tls.X509KeyPair(certBytes, keyBytes)
	if err != nil {
		return nil, fmt.Errorf("tlsprovider: failed to parse x509 key pair from %s/%s: %w", p.namespace, p.secretName, err)
	}
	return &cert, nil
}
