// internal/platform/ui/ascii.go
package ui

// SentinelBanner se imprime al arrancar el primer ciclo.
const SentinelBanner = `
╔═══════════════════════════════════════╗
║                                       ║
║    DIGITAL SENTINEL              🛡️    ║
║    Continuous Recon Pipeline          ║
║    ════════════════════               ║
║    targets → hosts → findings         ║
║                                       ║
╚═══════════════════════════════════════╝
`
