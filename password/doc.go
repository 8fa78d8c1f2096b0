// Package password verifies principal passwords.
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Verifier] also accepts bcrypt hashes written by earlier account tooling, and exposes
// [Verifier.VerifyDummy] so the login path can spend equal time on unknown principals.
//
// Password policy (length rules, reuse history) is not enforced here.
package password
