// Package questionnaire implements the fixed multi-step security-audit
// question flow.
package questionnaire

// MobileQuestions is the fixed question set for mobile-application audits.
// Identity and order never change at runtime.
var MobileQuestions = []string{
	"What is the name of the mobile application?",
	"Which platforms does the application support (Android, iOS, or both)?",
	"Does this mobile application contact a server via the internet? If yes, what is the URL?",
	"Does the application store sensitive data on the device?",
	"Does the application use third-party SDKs or libraries?",
	"Is certificate pinning implemented for network communication?",
	"Is the application code obfuscated?",
	"Do you have a direct download URL for the application package (APK/IPA)?",
}

// WebQuestions is the fixed question set for web-application audits.
var WebQuestions = []string{
	"What is the URL of the website to be audited?",
	"Is the website currently in production?",
	"Which technology stack is the website built on?",
	"Does the website have a login or user authentication?",
	"Does the website process payments or other financial transactions?",
	"Does the website store personal user data?",
	"Is the website behind a WAF or CDN?",
	"Are there any known vulnerabilities or previous audit findings?",
	"Do you have a staging environment we can test against?",
	"Are there API endpoints that should be included in the audit?",
	"Is rate limiting implemented on authentication endpoints?",
	"Who should be notified when the scan is complete?",
	"Do we have written authorization to perform active scanning against this target?",
}

// Answering the URL-disclosure question triggers a CI scan against the
// given endpoint; answering the mobile package-download question queues a
// static analysis of the artifact. The indexes identify those questions.
const (
	mobileURLQuestionIndex      = 2
	webURLQuestionIndex         = 0
	mobileArtifactQuestionIndex = 7
)
