// Package geom builds contact-aligned coordinate frames and the point versus
// face / edge / vertex footprint tests used for particle-wall contact.
//
// A [Frame] stores three orthonormal axes as rows. Axis 2 is the contact
// normal and points from the other body towards the particle, so a positive
// local force along axis 2 is compressive.
package geom
