// Command splinter-proxy is the CLI entrypoint: wiring config -> static
// dictionaries -> zoner -> resolver -> proxy, then serving until
// terminated.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/regenerativep/splinter-proxy/internal/commands"
	"github.com/regenerativep/splinter-proxy/internal/config"
	"github.com/regenerativep/splinter-proxy/internal/core"
	"github.com/regenerativep/splinter-proxy/internal/health"
	"github.com/regenerativep/splinter-proxy/internal/mapping"
	"github.com/regenerativep/splinter-proxy/internal/proxydata"
	"github.com/regenerativep/splinter-proxy/internal/tlsprovider"
	"github.com/regenerativep/splinter-proxy/internal/zoning"
	k8sresolver "github.com/regenerativep/splinter-proxy/internal/zoning/kubernetes"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "splinter-proxy",
		Short: "Multi-backend Minecraft proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "./splinter.yaml", "path to the proxy config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("main: failed to construct logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	dicts, err := mapping.LoadStaticDictionaries(mapping.StaticDictionaryPaths{
		Blocks:   cfg.Dictionaries.Blocks,
		Items:    cfg.Dictionaries.Items,
		Entities: cfg.Dictionaries.Entities,
		Fluids:   cfg.Dictionaries.Fluids,
	})
	if err != nil {
		logger.Fatal("failed to load static dictionaries", zap.Error(err))
	}

	zoner := buildZoner(cfg)

	resolver, err := buildResolver(cfg, logger)
	if err != nil {
		logger.Fatal("failed to construct backend resolver", zap.Error(err))
	}

	tlsProv, err := buildTLSProvider(cfg, logger)
	if err != nil {
		logger.Fatal("failed to construct TLS provider", zap.Error(err))
	}

	playerData, err := proxydata.Load(cfg.PlayerDataPath)
	if err != nil {
		logger.Fatal("failed to load player data", zap.Error(err))
	}

	proxy := core.New(core.Config{
		ProxyAddress:                     cfg.ProxyAddress,
		ServerStatusJSON:                 cfg.ServerStatusJSON,
		ImproperVersionDisconnectMessage: cfg.ImproperVersionDisconnectMessage,
		KeepAliveInterval:                cfg.KeepAliveInterval,
		KeepAliveTimeout:                 cfg.KeepAliveTimeout,
		ProxyProtocol:                    cfg.ProxyProtocol,
		TLSProvider:                      tlsProv,
	}, dicts, zoner, resolver, logger, playerData)

	registry := commands.Default()
	go runConsole(proxy, registry, logger)

	var healthServer *health.Server
	if cfg.HealthAddress != "" {
		healthServer = health.NewServer(cfg.HealthAddress, logger)
		healthServer.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- proxy.Serve()
	}()
	if healthServer != nil {
		healthServer.SetReady(true)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if healthServer != nil {
			healthServer.SetReady(false)
			healthServer.Stop(context.Background())
		}
		proxy.Shutdown(context.Background())
		return nil
	case err := <-errCh:
		return err
	}
}

// buildKubeClientset loads a Kubernetes client config: an explicit
// kubeconfig if given, otherwise falling back to in-cluster config.
func buildKubeClientset(kubeconfig string) (*k8s.Clientset, error) {
	if kubeconfig == "" {
		kubeconfig = os.Getenv("KUBECONFIG")
	}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig},
		&clientcmd.ConfigOverrides{},
	).ClientConfig()
	if err != nil {
		restConfig, err = clientcmd.BuildConfigFromFlags("", "")
		if err != nil {
			return nil, fmt.Errorf("main: failed to build kubeconfig: %w", err)
		}
	}
	return k8s.NewForConfig(restConfig)
}

// buildTLSProvider picks the TLS certificate source, if any, for the
// client-facing listener: a Kubernetes Secret takes priority over a
// file pair when both are configured.
func buildTLSProvider(cfg *config.Config, logger *zap.Logger) (tlsprovider.Provider, error) {
	if cfg.TLSKubernetesSecret != "" {
		clientset, err := buildKubeClientset(cfg.KubernetesKubeconfig)
		if err != nil {
			return nil, fmt.Errorf("main: failed to create kubernetes client for TLS: %w", err)
		}
		logger.Info("using Kubernetes TLS provider",
			zap.String("namespace", cfg.KubernetesNamespace), zap.String("secret", cfg.TLSKubernetesSecret))
		return tlsprovider.NewKubernetesProvider(clientset, cfg.KubernetesNamespace, cfg.TLSKubernetesSecret), nil
	}
	if cfg.TLSCertFile != "" {
		logger.Info("using file TLS provider", zap.String("cert_file", cfg.TLSCertFile))
		return tlsprovider.NewFileProvider(cfg.TLSCertFile, cfg.TLSKeyFile), nil
	}
	return nil, nil
}

func buildZoner(cfg *config.Config) *zoning.Zoner {
	zoner := zoning.NewZoner()
	for _, z := range cfg.Zones {
		switch z.Kind {
		case "inverted_rectangle":
			zoner.Add(z.BackendID, zoning.InvertedRectangle{X1: z.X1, Z1: z.Z1, X2: z.X2, Z2: z.Z2})
		default:
			zoner.Add(z.BackendID, zoning.Rectangle{X1: z.X1, Z1: z.Z1, X2: z.X2, Z2: z.Z2})
		}
	}
	if cfg.DefaultBackendID != nil {
		zoner.SetDefault(*cfg.DefaultBackendID)
	}
	return zoner
}

func buildResolver(cfg *config.Config, logger *zap.Logger) (zoning.BackendResolver, error) {
	if cfg.UseKubernetesResolver {
		clientset, err := buildKubeClientset(cfg.KubernetesKubeconfig)
		if err != nil {
			return nil, fmt.Errorf("main: failed to create kubernetes client: %w", err)
		}
		logger.Info("using Kubernetes backend resolver", zap.String("namespace", cfg.KubernetesNamespace))
		return k8sresolver.NewResolver(clientset, cfg.KubernetesNamespace), nil
	}

	backends, err := cfg.Backends()
	if err != nil {
		return nil, err
	}
	m := make(map[uint64]string, len(backends))
	for _, b := range backends {
		m[b.ID] = b.Address
	}
	logger.Info("using static backend resolver", zap.Int("backend_count", len(m)))
	return zoning.NewStaticResolver(m), nil
}

// runConsole reads commands from stdin and dispatches them against the
// registry, the process-level analog of an in-game command sender.
func runConsole(proxy *core.Proxy, registry *commands.Registry, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		name, args := fields[0], fields[1:]
		if err := registry.Dispatch(proxy, name, args, commands.ConsoleSender()); err != nil {
			logger.Warn("command failed", zap.String("command", name), zap.Error(err))
		}
	}
}
