package browser

// stealthScript runs before any page script on every new document. The entry
// page probes navigator for automation tells and locks the session out when
// it finds them; the overrides below restore the answers a stock browser
// gives.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'languages', {get: () => ['es-ES', 'es', 'en']});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3]});
window.chrome = window.chrome || { runtime: {} };
`
