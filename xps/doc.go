/*Package xps provides a client for Newport XPS series motion controllers.

The XPS speaks an ASCII remote procedure call dialect over TCP port 5001:
requests look like function calls, Name(arg1,arg2,...), and every response
is "errorCode,body" terminated by the literal ",EndOfAPI".  Configuration
(which groups exist, which positioners belong to them, what stages they
carry) is not queryable over the socket; it lives in system.ini on the
controller's flash, fetched over FTP (generations C and Q) or SFTP
(generation D).  This package wraps both transports.

While Newport markets the XPS as a more versatile and consistent
(vis-a-vis communication) product than the older ESP line, this is not
really true in the author of this package's opinion.  For example, there is
no function that returns the number of positioners in a group, yet to move
a positioner it must belong to a group, and when you get the position of
the group you must supply the number of positioners to query for.
Consequently, a best practice emerges to simply put each positioner in its
own group.  The Controller's axis-oriented methods (MoveAbs, GetPos, ...)
follow that practice: an axis label may be a group name or a
group.positioner stage name.
*/
package xps
